package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"widget-assistant/internal/common/config"
)

// ==========================
// PostgreSQL
// ==========================

func TestNewPostgres_RequiresHostAndDatabase(t *testing.T) {
	_, err := NewPostgres(config.PostgresConfig{Host: "localhost"})
	assert.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	for range qaSchema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	c := &PostgresClient{DB: db}
	require.NoError(t, c.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS qa_items").WillReturnError(fmt.Errorf("permission denied"))
	mock.ExpectRollback()

	c := &PostgresClient{DB: db}
	err = c.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Redis
// ==========================

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		wantAddr string
		wantDB   int
		wantPool int
		wantErr  bool
	}{
		{name: "host port", cfg: config.RedisConfig{Address: "localhost:6379", DB: 2}, wantAddr: "localhost:6379", wantDB: 2, wantPool: defaultRedisPoolSize},
		{name: "url", cfg: config.RedisConfig{Address: "redis://cache:6380/4", PoolSize: 32}, wantAddr: "cache:6380", wantDB: 4, wantPool: 32},
		{name: "empty", cfg: config.RedisConfig{}, wantErr: true},
		{name: "bad url", cfg: config.RedisConfig{Address: "redis://cache:6380/notadb"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := redisOptions(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
			assert.Equal(t, tt.wantPool, opts.PoolSize)
		})
	}
}

func TestRedisPing(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Ping(context.Background()))
	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}
