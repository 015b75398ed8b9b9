package checkpoint

import (
	"os"
	"testing"
)

// TestMySQLLog runs the shared contract against a real MySQL server.
// It is skipped unless RESEARCHAGENT_MYSQL_DSN is set, for example:
//
//	RESEARCHAGENT_MYSQL_DSN="user:pass@tcp(localhost:3306)/research_test?parseTime=true" go test ./...
func TestMySQLLog(t *testing.T) {
	dsn := os.Getenv("RESEARCHAGENT_MYSQL_DSN")
	if dsn == "" {
		t.Skip("RESEARCHAGENT_MYSQL_DSN not set")
	}

	runLogContract(t, func(t *testing.T) Log[testState] {
		log, err := NewMySQLLog[testState](dsn)
		if err != nil {
			t.Fatalf("NewMySQLLog: %v", err)
		}
		t.Cleanup(func() {
			_, _ = log.db.Exec("DROP TABLE IF EXISTS workflow_checkpoints")
			_ = log.Close()
		})
		return log
	})
}
