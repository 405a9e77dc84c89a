package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nonymizer/internal/driver"
)

func TestDSNFor_DefaultsHostAndPort(t *testing.T) {
	dsn := dsnFor(driver.Config{User: "root", Password: "pw", Name: "mydb"}, "mydb")
	require.Equal(t, "host=localhost port=5432 user=root password=pw dbname=mydb sslmode=disable", dsn)
}

func TestDSNFor_AdminConnectionUsesMaintenanceDB(t *testing.T) {
	dsn := dsnFor(driver.Config{User: "root", Password: "pw", Name: "mydb"}, maintenanceDB)
	require.Equal(t, "host=localhost port=5432 user=root password=pw dbname=postgres sslmode=disable", dsn, "the admin connection must not bind to cfg.Name")
}

func TestBaseArgs_OmitsUnsetFields(t *testing.T) {
	d := &Driver{cfg: driver.Config{User: "root"}}
	require.Equal(t, []string{"-U", "root"}, d.baseArgs())
}

func TestEnv_AddsPGPASSWORDWhenSet(t *testing.T) {
	d := &Driver{cfg: driver.Config{Password: "secret"}}
	env := d.env()
	require.Contains(t, env, "PGPASSWORD=secret")
}

func TestEnv_OmitsPGPASSWORDWhenUnset(t *testing.T) {
	d := &Driver{cfg: driver.Config{}}
	env := d.env()
	for _, e := range env {
		require.NotContains(t, e, "PGPASSWORD=")
	}
}

func TestExtraArgs_SplitsViaShlex(t *testing.T) {
	d := &Driver{}
	args, err := d.extraArgs("--no-owner --schema 'public'")
	require.NoError(t, err)
	require.Equal(t, []string{"--no-owner", "--schema", "public"}, args)
}

func TestExtraArgs_EmptyIsNil(t *testing.T) {
	d := &Driver{}
	args, err := d.extraArgs("")
	require.NoError(t, err)
	require.Nil(t, args)
}
