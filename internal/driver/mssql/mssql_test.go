package mssql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nonymizer/internal/driver"
)

func TestBuildConnString_WorkingConnectionIncludesDatabase(t *testing.T) {
	cs := buildConnString(driver.Config{Host: "db.internal", Port: "1433", User: "sa", Password: "pw", Name: "mydb"}, "mydb")
	require.Equal(t, "server=db.internal;port=1433;user id=sa;password=pw;database=mydb", cs)
}

func TestBuildConnString_AdminConnectionOmitsDatabase(t *testing.T) {
	cs := buildConnString(driver.Config{Host: "db.internal", Port: "1433", User: "sa", Password: "pw", Name: "mydb"}, "")
	require.Equal(t, "server=db.internal;port=1433;user id=sa;password=pw", cs, "admin connection must not bind to cfg.Name; defaults to master")
}

func TestBuildConnString_NoPasswordUsesIntegratedSecurity(t *testing.T) {
	cs := buildConnString(driver.Config{Host: "db.internal"}, "")
	require.Equal(t, "server=db.internal;integrated security=true", cs)
}

func TestQuoteIdentifier_BracketsAndDoublesClosingBracket(t *testing.T) {
	require.Equal(t, "[my]]db]", quoteIdentifier("my]db"))
}

func TestQuoteString_DoublesEmbeddedQuote(t *testing.T) {
	require.Equal(t, "'O''Brien'", quoteString("O'Brien"))
}
