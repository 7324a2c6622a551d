package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/timetable-api/pkg/config"
)

func TestDSNAndURL(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss", Name: "timetable"}

	assert.Equal(t, "host=db port=5432 user=app password=p@ss dbname=timetable sslmode=disable", DSN(cfg))
	assert.Equal(t, "postgres://app:p%40ss@db:5432/timetable?sslmode=disable", URL(cfg))

	cfg.SSLMode = "require"
	assert.Contains(t, URL(cfg), "sslmode=require")
}
