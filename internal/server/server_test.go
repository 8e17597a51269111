package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/price-bulletin/constants"
	"github.com/joseph-ayodele/price-bulletin/internal/common"
	"github.com/joseph-ayodele/price-bulletin/internal/entity"
	"github.com/joseph-ayodele/price-bulletin/internal/export"
	"github.com/joseph-ayodele/price-bulletin/internal/ingest"
	"github.com/joseph-ayodele/price-bulletin/internal/pipeline"
	"github.com/joseph-ayodele/price-bulletin/internal/repository"
)

type fakePublisher struct {
	out pipeline.Outcome
	err error
	got pipeline.Request
}

func (f *fakePublisher) Publish(_ context.Context, req pipeline.Request) (uuid.UUID, pipeline.Outcome, error) {
	f.got = req
	return uuid.New(), f.out, f.err
}

type fakeIngestor struct {
	paths []string
}

func (f *fakeIngestor) IngestPath(_ context.Context, path, _ string, _ bool) (ingest.IngestionResult, error) {
	f.paths = append(f.paths, path)
	if path == "bad.doc" {
		return ingest.IngestionResult{SourcePath: path}, fmt.Errorf("unsupported or missing extension: %q", ".doc")
	}
	return ingest.IngestionResult{SourcePath: path, HashHex: "abc"}, nil
}

func (f *fakeIngestor) IngestDirectory(_ context.Context, root string, _ bool) ([]ingest.IngestionResult, ingest.DirStats, error) {
	return []ingest.IngestionResult{{SourcePath: root + "/a.pdf", HashHex: "abc"}},
		ingest.DirStats{Scanned: 2, Matched: 1, Succeeded: 1}, nil
}

type harness struct {
	client *BulletinClient
	conn   *grpc.ClientConn
	pub    *fakePublisher
	ing    *fakeIngestor
	prices repository.PriceRepository
	runs   repository.RunRepository
}

func sampleBulletin() entity.Bulletin {
	kg := 45
	perKilo := 200.0
	return entity.Bulletin{
		Date:   "2025-12-23",
		Source: constants.Source,
		Products: []entity.Product{
			{ID: "prod-1", Name: "Tomate", Unit: "Unidad", PriceMin: 1200, PriceMax: 1800, Mode: 1400, Average: 1500, VolatilityIndex: 0.4, Category: constants.Vegetable},
			{ID: "prod-2", Name: "Papa blanca", Unit: "Malla (45 kg)", PriceMin: 8000, PriceMax: 9000, Mode: 8500, Average: 9000, VolatilityIndex: 0.1111, Category: constants.Tuber, WeightKg: &kg, PricePerKilo: &perKilo},
			{ID: "prod-3", Name: "Mango", Unit: "Unidad", PriceMin: 300, PriceMax: 500, Mode: 400, Average: 420, VolatilityIndex: 0.4762, Category: constants.Fruit},
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	h := &harness{
		pub:    &fakePublisher{},
		ing:    &fakeIngestor{},
		prices: repository.NewPriceRepository(db, nil),
		runs:   repository.NewRunRepository(db, nil),
	}
	svc := NewBulletinService(h.pub, h.prices, h.runs, h.ing, export.NewService(h.prices, nil), nil)

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterBulletinServer(s, svc)
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	h.conn = conn
	h.client = NewBulletinClient(conn)
	return h
}

func (h *harness) store(t *testing.T, b entity.Bulletin) {
	t.Helper()
	ctx := context.Background()
	id, err := h.runs.Start(ctx, "boletin.pdf", b.Date)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.prices.SaveBulletin(ctx, id, b); err != nil {
		t.Fatalf("SaveBulletin: %v", err)
	}
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if got := status.Code(err); got != code {
		t.Fatalf("expected %v, got %v (%v)", code, got, err)
	}
}

func TestParseReturnsBulletin(t *testing.T) {
	h := newHarness(t)
	h.pub.out = pipeline.Outcome{Bulletin: sampleBulletin(), Pages: 2, Lines: 14, Method: "pdftotext"}

	resp, err := h.client.Call(context.Background(), "Parse", map[string]any{"path": "inbox/boletin.pdf", "date": "2025-12-23"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.pub.got.Path != "inbox/boletin.pdf" || h.pub.got.Date != "2025-12-23" {
		t.Fatalf("unexpected request %+v", h.pub.got)
	}
	f := resp.GetFields()
	if _, err := uuid.Parse(f["runId"].GetStringValue()); err != nil {
		t.Fatalf("runId: %v", err)
	}
	if f["pages"].GetNumberValue() != 2 || f["method"].GetStringValue() != "pdftotext" {
		t.Fatalf("unexpected summary %v", resp)
	}
	products := f["bulletin"].GetStructValue().GetFields()["products"].GetListValue().GetValues()
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	papa := products[1].GetStructValue().GetFields()
	if papa["pricePerKilo"].GetNumberValue() != 200 || papa["weightKg"].GetNumberValue() != 45 {
		t.Fatalf("unexpected papa %v", papa)
	}
	if _, ok := products[0].GetStructValue().GetFields()["weightKg"]; ok {
		t.Fatal("weightKg must be omitted when absent")
	}
}

func TestParseValidatesRequest(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.Call(context.Background(), "Parse", map[string]any{})
	wantCode(t, err, codes.InvalidArgument)

	_, err = h.client.Call(context.Background(), "Parse", map[string]any{"path": "a.pdf", "date": "23/12/2025"})
	wantCode(t, err, codes.InvalidArgument)
}

func TestParseMapsPipelineErrors(t *testing.T) {
	h := newHarness(t)
	cases := map[error]codes.Code{
		fmt.Errorf("stat: %w", common.ErrDocumentNotFound): codes.NotFound,
		common.NewAppError("SCHEMA_VALIDATION", "bulletin rejected", common.ErrSchemaValidation): codes.FailedPrecondition,
		errors.New("boom"): codes.Internal,
	}
	for cause, code := range cases {
		h.pub.err = cause
		_, err := h.client.Call(context.Background(), "Parse", map[string]any{"path": "a.pdf", "date": "2025-12-23"})
		wantCode(t, err, code)
	}
}

func TestStatsFiltersStoredBulletin(t *testing.T) {
	h := newHarness(t)
	h.store(t, sampleBulletin())

	resp, err := h.client.Call(context.Background(), "Stats", map[string]any{"category": "fruta"})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	f := resp.GetFields()
	if f["date"].GetStringValue() != "2025-12-23" {
		t.Fatalf("unexpected date %v", f["date"])
	}
	products := f["products"].GetListValue().GetValues()
	if len(products) != 1 || products[0].GetStructValue().GetFields()["name"].GetStringValue() != "Mango" {
		t.Fatalf("expected only Mango, got %v", products)
	}
	stats := f["stats"].GetStructValue().GetFields()
	if stats["totalProducts"].GetNumberValue() != 1 {
		t.Fatalf("unexpected stats %v", stats)
	}
	cats := f["categories"].GetListValue().GetValues()
	if len(cats) != 4 || cats[0].GetStringValue() != constants.AllCategory {
		t.Fatalf("categories must cover the whole bulletin, got %v", cats)
	}

	resp, err = h.client.Call(context.Background(), "Stats", map[string]any{"search": "PAPA"})
	if err != nil {
		t.Fatalf("Stats search: %v", err)
	}
	stats = resp.GetFields()["stats"].GetStructValue().GetFields()
	cheapest := stats["cheapest"].GetStructValue().GetFields()
	if cheapest["name"].GetStringValue() != "Papa blanca" {
		t.Fatalf("unexpected cheapest %v", cheapest)
	}
}

func TestStatsErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.Call(context.Background(), "Stats", map[string]any{})
	wantCode(t, err, codes.NotFound)

	_, err = h.client.Call(context.Background(), "Stats", map[string]any{"category": "Dairy"})
	wantCode(t, err, codes.InvalidArgument)
}

func TestListRuns(t *testing.T) {
	h := newHarness(t)
	h.store(t, sampleBulletin())

	resp, err := h.client.Call(context.Background(), "ListRuns", map[string]any{"limit": 5})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	runs := resp.GetFields()["runs"].GetListValue().GetValues()
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0].GetStructValue().GetFields()
	if run["status"].GetStringValue() != string(constants.RunStatusRunning) || run["source_path"].GetStringValue() != "boletin.pdf" {
		t.Fatalf("unexpected run %v", run)
	}
}

func TestIngest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	resp, err := h.client.Call(ctx, "IngestFile", map[string]any{"path": "inbox/a.pdf"})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if resp.GetFields()["contentHashHex"].GetStringValue() != "abc" {
		t.Fatalf("unexpected response %v", resp)
	}

	_, err = h.client.Call(ctx, "IngestFile", map[string]any{"path": "bad.doc"})
	wantCode(t, err, codes.InvalidArgument)

	_, err = h.client.Call(ctx, "IngestDirectory", map[string]any{})
	wantCode(t, err, codes.InvalidArgument)

	resp, err = h.client.Call(ctx, "IngestDirectory", map[string]any{"rootPath": "inbox"})
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	f := resp.GetFields()
	if f["scanned"].GetNumberValue() != 2 || len(f["results"].GetListValue().GetValues()) != 1 {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.Call(ctx, "Export", map[string]any{"date": "2025-12-23"})
	wantCode(t, err, codes.NotFound)

	h.store(t, sampleBulletin())
	resp, err := h.client.Call(ctx, "Export", map[string]any{"date": "2025-12-23"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	f := resp.GetFields()
	if f["filename"].GetStringValue() != "prices-2025-12-23.xlsx" {
		t.Fatalf("unexpected filename %v", f["filename"])
	}
	data, err := base64.StdEncoding.DecodeString(f["xlsxBase64"].GetStringValue())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data) < 2 || string(data[:2]) != "PK" {
		t.Fatal("expected a zip-based workbook")
	}
}

func TestHealthServing(t *testing.T) {
	h := newHarness(t)
	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected status %v", resp.GetStatus())
	}
}
