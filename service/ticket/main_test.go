package ticket

import (
	"os"
	"testing"

	"zestpass/db/dbtest"
)

func TestMain(m *testing.M) {
	code := m.Run()
	dbtest.Teardown()
	os.Exit(code)
}
