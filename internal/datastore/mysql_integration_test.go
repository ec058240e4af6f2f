//go:build integration

package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/tphakala/phishguard/internal/conf"
)

func TestMySQLStoreIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("phishguard"),
		tcmysql.WithUsername("phishguard"),
		tcmysql.WithPassword("phishguard"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Database.Type = "mysql"
	settings.Database.MySQL.Host = host
	settings.Database.MySQL.Port = port.Port()
	settings.Database.MySQL.Database = "phishguard"
	settings.Database.MySQL.Username = "phishguard"
	settings.Database.MySQL.Password = "phishguard"

	store, err := New(settings)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Ping(ctx))

	n, err := store.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	record, err := store.Lookup(ctx, "https://paypal-secure-login.ml")
	require.NoError(t, err)
	assert.Equal(t, 2, record.ReportCount)

	_, _, err = store.AddReport(ctx, "https://paypal-secure-login.ml", "fake login", "u1")
	require.NoError(t, err)
	record, err = store.Lookup(ctx, "https://paypal-secure-login.ml")
	require.NoError(t, err)
	assert.Equal(t, 4, record.ReportCount)
	assert.Equal(t, "paypal", record.Source)

	require.NoError(t, store.RecordAPIStatus(ctx, "urlhaus", "clean", time.Second, true))
	require.NoError(t, store.RecordAPIStatus(ctx, "urlhaus", "clean", time.Second, true))
	rows, err := store.APIStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].SuccessCount)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.TotalScamURLs)
	assert.Equal(t, int64(1), stats.PendingUserReports)

	_, err = store.Backup(ctx, t.TempDir())
	assert.Error(t, err)
}
