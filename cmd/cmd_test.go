package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdwan-sites/internal/client"
	"sdwan-sites/internal/config"
	"sdwan-sites/internal/pipeline"
	"sdwan-sites/internal/report"
	"sdwan-sites/internal/sites"
	"sdwan-sites/pkg/models"
)

type stubController struct {
	authErr error
	devices []models.RawDevice
}

func (s stubController) Authenticate() error { return s.authErr }

func (s stubController) GetDevices() ([]models.RawDevice, error) { return s.devices, nil }

func (s stubController) GetTlocs() ([]models.RawTloc, error) { return nil, nil }

func newStubPipeline(c stubController) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Controller: c,
		Aggregator: sites.NewAggregator(nil, zerolog.Nop()),
		Log:        zerolog.Nop(),
	}
}

func strPtr(s string) *string { return &s }

func TestRunReport(t *testing.T) {
	t.Parallel()

	dev := models.RawDevice{SiteID: strPtr("100"), HostName: strPtr("r1"), DeviceType: strPtr("vedge")}

	tests := []struct {
		name    string
		ctrl    stubController
		wantErr error
	}{
		{name: "success", ctrl: stubController{devices: []models.RawDevice{dev}}},
		{name: "login rejected", ctrl: stubController{authErr: fmt.Errorf("%w: login returned 401", client.ErrAuthentication)}, wantErr: client.ErrAuthentication},
		{name: "empty inventory", ctrl: stubController{devices: []models.RawDevice{}}, wantErr: pipeline.ErrNoSites},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := config.Settings{
				BaseURL: "https://vmanage.example.com",
				Output:  filepath.Join(t.TempDir(), "sites.json"),
			}

			var out bytes.Buffer
			err := runReport(&out, newStubPipeline(tt.ctrl), s)

			assert.Contains(t, out.String(), "Target: https://vmanage.example.com")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotContains(t, out.String(), "successfully mapped")
				assert.NoFileExists(t, s.Output)
				return
			}

			require.NoError(t, err)
			assert.Contains(t, out.String(), "Site locations successfully mapped to cities and addresses.")
			assert.FileExists(t, s.Output)
		})
	}
}

func writeFixture(t *testing.T) string {
	t.Helper()

	m := models.NewSiteMap()
	branch := m.GetOrCreate("300")
	branch.SiteType = models.SiteTypeBranch
	branch.GeocodedLocation = &models.GeoLocation{FormattedAddress: "Berlin, Berlin, Deutschland"}
	branch.Devices = append(branch.Devices,
		&models.Device{Hostname: "edge-1", Reachability: "reachable"},
		&models.Device{Hostname: "edge-2", Reachability: "unreachable"},
	)
	ctrl := m.GetOrCreate("1")
	ctrl.SiteType = models.SiteTypeControlPlane
	ctrl.Devices = append(ctrl.Devices, &models.Device{Hostname: "vmanage", Reachability: "reachable"})

	path := filepath.Join(t.TempDir(), "sites.json")
	require.NoError(t, report.ExportJSON(path, m))
	return path
}

func TestListSites_Table(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, listSites(&out, writeFixture(t), false))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "SITE")
	assert.Regexp(t, `^300\s+branch\s+2\s+1\s+Berlin, Berlin, Deutschland$`, string(lines[2]))
	assert.Regexp(t, `^1\s+control_plane\s+1\s+1\s+-$`, string(lines[3]))
}

func TestListSites_JSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, listSites(&out, writeFixture(t), true))

	got := models.NewSiteMap()
	require.NoError(t, json.Unmarshal(out.Bytes(), got))
	assert.Equal(t, []string{"300", "1"}, got.Keys())
}

func TestListSites_EmptyAndMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("{}\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, listSites(&out, empty, false))
	assert.Equal(t, "No sites found.\n", out.String())

	err := listSites(&bytes.Buffer{}, filepath.Join(dir, "missing.json"), false)
	assert.ErrorContains(t, err, "loading sites")
}

func TestBindFlags(t *testing.T) {
	c := &cobra.Command{Use: "scratch"}
	c.Flags().String("known", "", "")

	assert.NotPanics(t, func() {
		bindFlags(c, map[string]string{"cmd_test_known": "known"})
	})
	assert.PanicsWithValue(t, `bind cmd_test_missing: command "scratch" has no flag --unknown`, func() {
		bindFlags(c, map[string]string{"cmd_test_missing": "unknown"})
	})
}

func TestExporterProgram_StartBuildsServerBeforeServing(t *testing.T) {
	prg := &program{
		settings: config.Settings{
			BaseURL:        "https://127.0.0.1:1",
			Username:       "admin",
			Password:       "secret",
			Insecure:       true,
			RequestTimeout: time.Second,
			MetricsPort:    "0",
		},
		log: zerolog.Nop(),
	}

	require.NoError(t, prg.Start(nil))
	require.NotNil(t, prg.server)
	require.NotNil(t, prg.pipe)
	assert.Equal(t, ":0", prg.server.Addr)

	assert.NoError(t, prg.Stop(nil))
}

func TestExporterProgram_StopBeforeStart(t *testing.T) {
	assert.NoError(t, (&program{log: zerolog.Nop()}).Stop(nil))
}
