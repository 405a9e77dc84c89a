package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"nonymizer/internal/dialect"
	mysqldialect "nonymizer/internal/dialect/mysql"
	"nonymizer/internal/driver"
	"nonymizer/internal/fake"
	"nonymizer/internal/strategy"
)

// fakeDriver is an in-memory driver.Driver recording every statement it's
// asked to execute, for assertions without a live database.
type fakeDriver struct {
	mu         sync.Mutex
	executed   []string
	failOn     map[string]bool
	closeCount int
}

func (d *fakeDriver) Execute(_ context.Context, stmt string) error { return d.DBExecute(nil, stmt) }
func (d *fakeDriver) DBExecute(_ context.Context, stmt string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executed = append(d.executed, stmt)
	if d.failOn != nil && d.failOn[stmt] {
		return fmt.Errorf("simulated failure")
	}
	return nil
}
func (d *fakeDriver) SingleResult(context.Context, string) (string, error) { return "", nil }
func (d *fakeDriver) TestConnection(context.Context) bool                 { return true }
func (d *fakeDriver) Close() error                                        { d.closeCount++; return nil }
func (d *fakeDriver) Streamable() bool                                    { return false }
func (d *fakeDriver) OpenRestoreSink(context.Context) (io.WriteCloser, error) {
	return nil, fmt.Errorf("unsupported")
}
func (d *fakeDriver) OpenDumpSource(context.Context) (io.ReadCloser, error) {
	return nil, fmt.Errorf("unsupported")
}
func (d *fakeDriver) RestoreFromPath(context.Context, string) error { return nil }
func (d *fakeDriver) DumpToPath(context.Context, string) error      { return nil }
func (d *fakeDriver) DumpSizeEstimate(context.Context) (int64, bool) { return 0, false }

func (d *fakeDriver) statementCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.executed)
}

func newTestFactory() dialect.Factory { return &mysqldialect.Factory{} }

func newTestGenerator(t *testing.T) *fake.Generator {
	t.Helper()
	gen, err := fake.NewGenerator(fake.DefaultLocale, nil)
	require.NoError(t, err)
	return gen
}

func TestRun_SkipsSeedTableWhenNoFakeColumns(t *testing.T) {
	d := &fakeDriver{}
	e := New(d, nil, newTestFactory(), newTestGenerator(t), Options{})
	db := &strategy.Database{
		Tables: []strategy.Table{{Kind: strategy.TableTruncate, TableName: "sessions"}},
	}
	require.NoError(t, e.Run(context.Background(), db))
	for _, stmt := range d.executed {
		require.NotContains(t, stmt, "_nonymizer_seed_fake_data")
	}
}

func TestRun_BuildsSeedTableAndInsertsConfiguredRowCount(t *testing.T) {
	d := &fakeDriver{}
	e := New(d, nil, newTestFactory(), newTestGenerator(t), Options{SeedRows: 5})
	db := &strategy.Database{
		Tables: []strategy.Table{{
			Kind:      strategy.TableUpdateColumns,
			TableName: "customer",
			Columns: []strategy.Column{
				{Kind: strategy.ColumnFakeUpdate, ColumnName: "first_name", Fake: fake.Spec{Method: "first_name"}},
			},
		}},
	}
	require.NoError(t, e.Run(context.Background(), db))

	var inserts int
	for _, stmt := range d.executed {
		if len(stmt) > 6 && stmt[:6] == "INSERT" {
			inserts++
		}
	}
	require.Equal(t, 5, inserts)
}

func TestRun_RunsBeforeAndAfterScriptsAroundTables(t *testing.T) {
	d := &fakeDriver{}
	e := New(d, nil, newTestFactory(), newTestGenerator(t), Options{})
	db := &strategy.Database{
		BeforeScripts: []string{"SET FOREIGN_KEY_CHECKS=0"},
		AfterScripts:  []string{"SET FOREIGN_KEY_CHECKS=1"},
		Tables:        []strategy.Table{{Kind: strategy.TableTruncate, TableName: "sessions"}},
	}
	require.NoError(t, e.Run(context.Background(), db))
	require.Equal(t, "SET FOREIGN_KEY_CHECKS=0", d.executed[0])
	require.Equal(t, "SET FOREIGN_KEY_CHECKS=1", d.executed[len(d.executed)-1])
}

func TestRun_AggregatesPerTableErrorsByDefault(t *testing.T) {
	d := &fakeDriver{failOn: map[string]bool{"SET FOREIGN_KEY_CHECKS=0; TRUNCATE TABLE `broken`; SET FOREIGN_KEY_CHECKS=1;": true}}
	e := New(d, nil, newTestFactory(), newTestGenerator(t), Options{})
	db := &strategy.Database{
		Tables: []strategy.Table{{Kind: strategy.TableTruncate, TableName: "broken"}},
	}
	err := e.Run(context.Background(), db)
	require.Error(t, err)
	var aggErr *AnonymizationError
	require.ErrorAs(t, err, &aggErr)
	require.Len(t, aggErr.Errors, 1)
}

func TestRun_IgnoreAnonymizationErrorsSuppressesFailure(t *testing.T) {
	d := &fakeDriver{failOn: map[string]bool{"SET FOREIGN_KEY_CHECKS=0; TRUNCATE TABLE `broken`; SET FOREIGN_KEY_CHECKS=1;": true}}
	e := New(d, nil, newTestFactory(), newTestGenerator(t), Options{IgnoreAnonymizationErrors: true})
	db := &strategy.Database{
		Tables: []strategy.Table{{Kind: strategy.TableTruncate, TableName: "broken"}},
	}
	require.NoError(t, e.Run(context.Background(), db))
}

func TestRun_UsesWorkerFactoryPerTable(t *testing.T) {
	var opened int
	var mu sync.Mutex
	base := &fakeDriver{}
	workerFactory := func(context.Context) (driver.Driver, error) {
		mu.Lock()
		opened++
		mu.Unlock()
		return &fakeDriver{}, nil
	}
	e := New(base, workerFactory, newTestFactory(), newTestGenerator(t), Options{Workers: 2})

	db := &strategy.Database{
		Tables: []strategy.Table{
			{Kind: strategy.TableTruncate, TableName: "a"},
			{Kind: strategy.TableTruncate, TableName: "b"},
		},
	}
	require.NoError(t, e.Run(context.Background(), db))
	require.Equal(t, 2, opened)
}
