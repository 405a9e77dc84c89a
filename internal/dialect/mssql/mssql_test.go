package mssql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nonymizer/internal/fake"
	"nonymizer/internal/strategy"
)

func TestQuoteIdentifier_BracketsAndDoublesClosingBracket(t *testing.T) {
	require.Equal(t, "[a]]b]", QuoteIdentifier("a]b"))
}

func TestUpdateTable_AnsiWarningsOffWrapsStatement(t *testing.T) {
	f := &Factory{AnsiWarningsOff: true}
	table := strategy.Table{
		TableName: "customer",
		Kind:      strategy.TableUpdateColumns,
		Columns: []strategy.Column{
			{Kind: strategy.ColumnEmpty, ColumnName: "notes"},
		},
	}
	stmts, err := f.UpdateTable("_seed", table)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Contains(t, stmts[0], "SET ANSI_WARNINGS OFF")
	require.Contains(t, stmts[0], "SET ANSI_WARNINGS ON")
}

func TestUpdateTable_AnsiWarningsOffDisabledByDefault(t *testing.T) {
	f := &Factory{}
	table := strategy.Table{
		TableName: "customer",
		Kind:      strategy.TableUpdateColumns,
		Columns: []strategy.Column{
			{Kind: strategy.ColumnEmpty, ColumnName: "notes"},
		},
	}
	stmts, err := f.UpdateTable("_seed", table)
	require.NoError(t, err)
	require.NotContains(t, stmts[0], "ANSI_WARNINGS")
}

func TestUpdateTable_FakeUpdateUsesTopOrderByNewID(t *testing.T) {
	f := &Factory{}
	table := strategy.Table{
		TableName: "actor",
		Kind:      strategy.TableUpdateColumns,
		Columns: []strategy.Column{
			{Kind: strategy.ColumnFakeUpdate, ColumnName: "first_name", Fake: fake.Spec{Method: "first_name"}},
		},
	}
	stmts, err := f.UpdateTable("_seed", table)
	require.NoError(t, err)
	require.Contains(t, stmts[0], "TOP 1")
	require.Contains(t, stmts[0], "ORDER BY NEWID()")
}

func TestDropDatabase_SetsSingleUserBeforeDrop(t *testing.T) {
	f := &Factory{}
	stmts := f.DropDatabase("mydb")
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "SINGLE_USER")
	require.Contains(t, stmts[1], "DROP DATABASE IF EXISTS")
}
