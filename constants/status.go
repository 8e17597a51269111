package constants

// RunStatus is the canonical status for rows in bulletin_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusValidated RunStatus = "VALIDATED" // bulletin passed the schema gate
	RunStatusEmpty     RunStatus = "EMPTY"     // validated, but no products detected
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure
)
