package migrate

import "testing"

func TestRun_EmptyDSN(t *testing.T) {
	if err := Run("", "up"); err == nil {
		t.Fatal("Run with empty DSN should fail")
	}
}

func TestRun_BadDirection(t *testing.T) {
	if err := Run("postgres://localhost/x", "sideways"); err == nil {
		t.Fatal("Run with bad direction should fail")
	}
}
