package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DB_DRIVER", "")
	t.Setenv("JWT_EXPIRES_IN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.AccessTTL())
	assert.Equal(t, []string{"BEIT", "FEIT", "SEIT", "TEIT"}, cfg.DepartmentGroups.Expand([]string{"IT"}))
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: "9090"
upload:
  dir: /tmp/concession
  max_mb: 2
department_groups:
  extc: [FEEXTC, SEEXTC]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/concession", cfg.UploadDir)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes())
	assert.Equal(t, []string{"FEEXTC", "SEEXTC"}, cfg.DepartmentGroups.Members("EXTC"))
	assert.Nil(t, cfg.DepartmentGroups.Members("IT"))
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	assert.Error(t, err)
}

func TestDepartmentGroupsExpand(t *testing.T) {
	g := DefaultDepartmentGroups()

	t.Run("GroupCaseInsensitive", func(t *testing.T) {
		assert.Equal(t, []string{"BEMECH", "FEMECH", "SEMECH", "TEMECH"}, g.Expand([]string{"mech"}))
	})

	t.Run("LiteralCodes", func(t *testing.T) {
		assert.Equal(t, []string{"CS", "FEIT"}, g.Expand([]string{"FEIT", " CS ", "", "FEIT"}))
	})

	t.Run("Mixed", func(t *testing.T) {
		assert.Equal(t, []string{"BEIT", "CS", "FEIT", "SEIT", "TEIT"}, g.Expand([]string{"IT", "CS"}))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, g.Expand(nil))
	})
}
