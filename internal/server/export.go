package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/price-bulletin/internal/common"
)

// Export returns the stored bulletin for date as a base64 XLSX workbook.
func (s *BulletinService) Export(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	date := strings.TrimSpace(str(in, "date"))
	data, err := s.exporter.ExportXLSX(ctx, date)
	if err != nil {
		s.logger.Error("export failed", "date", date, "error", err)
		return nil, common.ToStatus(err)
	}

	name := "prices-latest.xlsx"
	if date != "" {
		name = fmt.Sprintf("prices-%s.xlsx", date)
	}
	return toStruct(map[string]any{
		"filename":    name,
		"contentType": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"xlsxBase64":  base64.StdEncoding.EncodeToString(data),
	})
}
