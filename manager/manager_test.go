package manager

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/icc"

	"github.com/f-spot/cms"
	"github.com/f-spot/cms/convert"
	cmsicc "github.com/f-spot/cms/icc"
)

var quiet = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func named_profile(t *testing.T, name string) []byte {
	t.Helper()
	data, err := cms.CreateSRgb().Save()
	require.NoError(t, err)
	p, err := cmsicc.Decode(data)
	require.NoError(t, err)
	require.NoError(t, p.SetText(cmsicc.DeviceManufacturerDescriptionSignature, name))
	return p.Encode()
}

func write_file(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

type fake_screen []byte

func (s fake_screen) ICCProfile() ([]byte, error) { return s, nil }

func profile_dir(t *testing.T) string {
	dir := t.TempDir()
	gray, err := cms.CreateGray(cms.D50xyY, nil)
	require.NoError(t, err)
	defer gray.Close()
	gray_data, err := gray.Save()
	require.NoError(t, err)
	write_file(t, filepath.Join(dir, "broken.icm"), []byte("not a profile"))
	write_file(t, filepath.Join(dir, "gray.icc"), gray_data)
	write_file(t, filepath.Join(dir, "printer.icc"), named_profile(t, "Printer"))
	write_file(t, filepath.Join(dir, "readme.txt"), named_profile(t, "Ignored"))
	write_file(t, filepath.Join(dir, "srgb2.icm"), icc.SRGBv2Profile)
	write_file(t, filepath.Join(dir, "sub", "studio.ICC"), named_profile(t, "Studio"))
	return dir
}

func test_config(dirs ...string) Config {
	cfg := DefaultConfig()
	cfg.SearchDirs = dirs
	return cfg
}

func names(profiles []*cms.Profile) (ans []string) {
	for _, p := range profiles {
		ans = append(ans, p.ProductName())
	}
	return
}

func TestLoadSettings(t *testing.T) {
	dir := profile_dir(t)
	cfg := test_config(dir, filepath.Join(dir, "missing"))
	cfg.DisplayProfile = "Studio"
	cfg.OutputProfile = "Printer"
	m, err := New(cfg, quiet, WithScreen(fake_screen(named_profile(t, "Screen"))))
	require.NoError(t, err)
	defer m.Close()

	profiles := m.Profiles()
	require.Len(t, profiles, 6)
	for _, p := range profiles {
		assert.Equal(t, cms.ColorSpaceRgb, p.ColorSpace())
	}
	n := names(profiles)
	assert.Equal(t, []string{"sRGB", "Adobe RGB (compatible)", "Printer"}, n[:3])
	assert.Equal(t, []string{"Studio", "Screen"}, n[4:])
	assert.Same(t, cms.CreateStandardRgb(), profiles[0])

	assert.Equal(t, "Studio", m.DisplayProfile().ProductName())
	assert.Equal(t, "Printer", m.OutputProfile().ProductName())
	assert.Equal(t, "Screen", m.ScreenProfile().ProductName())
	assert.NotNil(t, m.StandardTransform())
}

func TestProfileSelection(t *testing.T) {
	dir := profile_dir(t)

	t.Run("unknown names fall back to sRGB", func(t *testing.T) {
		cfg := test_config(dir)
		cfg.DisplayProfile = "Nonexistent"
		m, err := New(cfg, quiet)
		require.NoError(t, err)
		defer m.Close()
		assert.Same(t, cms.CreateStandardRgb(), m.DisplayProfile())
		assert.Same(t, cms.CreateStandardRgb(), m.OutputProfile())
		assert.Nil(t, m.ScreenProfile())
	})

	t.Run("screen profile for display", func(t *testing.T) {
		cfg := test_config(dir)
		cfg.DisplayProfile = "Studio"
		cfg.UseScreenProfile = true
		m, err := New(cfg, quiet, WithScreen(fake_screen(named_profile(t, "Screen"))))
		require.NoError(t, err)
		defer m.Close()
		assert.Same(t, m.ScreenProfile(), m.DisplayProfile())
	})

	t.Run("known screen profile is not listed twice", func(t *testing.T) {
		m, err := New(test_config(dir), quiet, WithScreen(fake_screen(named_profile(t, "Printer"))))
		require.NoError(t, err)
		defer m.Close()
		assert.Len(t, m.Profiles(), 5)
		require.NotNil(t, m.ScreenProfile())
		assert.Equal(t, "Printer", m.ScreenProfile().ProductName())
	})

	t.Run("screen profile from file", func(t *testing.T) {
		cfg := test_config()
		cfg.ScreenProfile = filepath.Join(dir, "sub", "studio.ICC")
		cfg.UseScreenProfile = true
		m, err := New(cfg, quiet)
		require.NoError(t, err)
		defer m.Close()
		assert.Equal(t, "Studio", m.DisplayProfile().ProductName())
		assert.Len(t, m.Profiles(), 3)
	})

	t.Run("set profiles", func(t *testing.T) {
		m, err := New(test_config(dir), quiet)
		require.NoError(t, err)
		defer m.Close()
		var studio *cms.Profile
		for _, p := range m.Profiles() {
			if p.ProductName() == "Studio" {
				studio = p
			}
		}
		require.NotNil(t, studio)
		before := m.StandardTransform()
		require.NoError(t, m.SetDisplayProfile(studio))
		require.NoError(t, m.SetOutputProfile(studio))
		assert.NotSame(t, before, m.StandardTransform())
		assert.Equal(t, "Studio", m.Config().DisplayProfile)
		assert.Equal(t, "Studio", m.Config().OutputProfile)

		// unknown profiles are used but not remembered
		alt, err := cms.NewRgbProfile(cms.D50xyY, cms.ColorCIExyYTriple{
			Red:   cms.ColorCIExyY{X: 0.64, Y: 0.33, YY: 1},
			Green: cms.ColorCIExyY{X: 0.3, Y: 0.6, YY: 1},
			Blue:  cms.ColorCIExyY{X: 0.15, Y: 0.06, YY: 1},
		}, []*cms.ToneCurve{must(cms.NewToneCurve(1)), must(cms.NewToneCurve(1)), must(cms.NewToneCurve(1))})
		require.NoError(t, err)
		defer alt.Close()
		require.NoError(t, m.SetDisplayProfile(alt))
		assert.Same(t, alt, m.DisplayProfile())
		assert.Equal(t, "Studio", m.Config().DisplayProfile)

		require.Error(t, m.SetDisplayProfile(nil))
		require.Error(t, m.SetOutputProfile(nil))

		require.NoError(t, m.ReloadSettings())
		assert.Equal(t, "Studio", m.DisplayProfile().ProductName())
	})
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestApply(t *testing.T) {
	m, err := New(test_config(), quiet)
	require.NoError(t, err)
	defer m.Close()
	profiles := m.Profiles()
	require.Len(t, profiles, 2)
	adobe := profiles[1]

	t.Run("screen via the standard transform", func(t *testing.T) {
		img := convert.NewNRGB(image.Rect(0, 0, 4, 1))
		copy(img.Pix, []byte{0, 0, 0, 50, 100, 150, 200, 210, 220, 255, 255, 255})
		want := append([]byte(nil), img.Pix...)
		out, err := m.ApplyScreenProfile(img, nil)
		require.NoError(t, err)
		assert.Same(t, img, out)
		for i := range want {
			assert.InDelta(t, want[i], img.Pix[i], 2, "byte %d", i)
		}
	})

	t.Run("printer", func(t *testing.T) {
		require.NoError(t, m.SetOutputProfile(adobe))
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 128})
		out, err := m.ApplyPrinterProfile(img, nil)
		require.NoError(t, err)
		c := out.(*image.NRGBA).NRGBAAt(0, 0)
		assert.InDelta(t, 219, c.R, 3)
		assert.LessOrEqual(t, c.G, uint8(2))
		assert.LessOrEqual(t, c.B, uint8(2))
		assert.Equal(t, uint8(128), c.A)
	})

	t.Run("explicit profiles", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, color.NRGBA{219, 0, 0, 255})
		out, err := m.ApplyProfile(img, adobe, cms.CreateSRgb())
		require.NoError(t, err)
		c := out.(*image.NRGBA).NRGBAAt(0, 0)
		assert.InDelta(t, 255, c.R, 3)
		_, err = m.ApplyProfile(img, nil, adobe)
		require.Error(t, err)
	})

	t.Run("transforms", func(t *testing.T) {
		tr, err := m.CreateTransform(convert.NewNRGB(image.Rect(0, 0, 1, 1)), nil)
		require.NoError(t, err)
		defer tr.Close()
		out := make([]byte, 3)
		require.NoError(t, tr.Apply([]byte{10, 20, 30}, out, 1))

		tr2, err := m.CreateTransform(image.NewNRGBA(image.Rect(0, 0, 1, 1)), adobe)
		require.NoError(t, err)
		defer tr2.Close()
		out = make([]byte, 4)
		require.NoError(t, tr2.Apply([]byte{10, 20, 30, 77}, out, 1))
		assert.Equal(t, byte(77), out[3])

		tr3, err := m.CreateTransform(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, tr3)
	})
}

func TestDisabled(t *testing.T) {
	cfg := test_config()
	cfg.Enabled = false
	m, err := New(cfg, quiet)
	require.NoError(t, err)
	defer m.Close()
	assert.Nil(t, m.StandardTransform())
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[0] = 200
	tr, err := m.CreateTransform(img, nil)
	require.NoError(t, err)
	assert.Nil(t, tr)
	for _, f := range []func(image.Image, *cms.Profile) (image.Image, error){m.ApplyScreenProfile, m.ApplyPrinterProfile} {
		out, err := f(img, nil)
		require.NoError(t, err)
		assert.Same(t, img, out)
		assert.Equal(t, uint8(200), img.Pix[0])
	}
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	home, err := homedir.Dir()
	require.NoError(t, err)

	for _, tc := range []struct {
		name, file, content string
	}{
		{"toml", "cms.toml", "display_profile = \"Studio\"\nwatch = true\nsearch_dirs = [\"~/icc\", \"/opt/icc \", \"/opt/icc\"]\n"},
		{"yaml", "cms.yml", "display_profile: Studio\nwatch: true\nsearch_dirs:\n  - ~/icc\n  - '/opt/icc '\n  - /opt/icc\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			write_file(t, path, []byte(tc.content))
			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.True(t, cfg.Enabled)
			assert.True(t, cfg.Watch)
			assert.Equal(t, "Studio", cfg.DisplayProfile)
			assert.Empty(t, cfg.OutputProfile)
			dirs, err := cfg.search_dirs()
			require.NoError(t, err)
			assert.Equal(t, []string{filepath.Join(home, "icc"), "/opt/icc"}, dirs)
		})
	}

	t.Run("save", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.OutputProfile = "Printer"
		cfg.UseScreenProfile = true
		for _, name := range []string{"saved.toml", "saved.yaml"} {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveConfig(path, cfg))
			got, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		}
	})

	t.Run("errors", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "cms.ini"))
		require.Error(t, err)
		_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
		require.ErrorIs(t, err, os.ErrNotExist)
		path := filepath.Join(dir, "bad.toml")
		write_file(t, path, []byte("display_profile = [\n"))
		_, err = LoadConfig(path)
		require.Error(t, err)
	})
}

func TestReloadKeepsHandedOutObjects(t *testing.T) {
	cfg := test_config(profile_dir(t))
	cfg.DisplayProfile = "Studio"
	m, err := New(cfg, quiet, WithScreen(fake_screen(named_profile(t, "Screen"))))
	require.NoError(t, err)
	defer m.Close()
	tr := m.StandardTransform()
	require.NotNil(t, tr)
	profiles := m.Profiles()
	screen := m.ScreenProfile()
	require.NotNil(t, screen)

	in := []byte{10, 200, 30, 255, 255, 255}
	stop := make(chan struct{})
	failed := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		out := make([]byte, len(in))
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := tr.Apply(in, out, 2); err != nil {
				failed <- err
				return
			}
		}
	}()
	for range 3 {
		require.NoError(t, m.LoadSettings())
		require.NoError(t, m.ReloadSettings())
	}
	close(stop)
	wg.Wait()
	select {
	case err := <-failed:
		t.Fatalf("transform failed during reload: %v", err)
	default:
	}

	assert.NotSame(t, tr, m.StandardTransform())
	out := make([]byte, len(in))
	require.NoError(t, tr.Apply(in, out, 2))
	assert.Equal(t, names(profiles), names(m.Profiles()))
	for _, p := range profiles {
		_, err := p.Save()
		require.NoError(t, err, p.ProductName())
	}
	assert.Equal(t, "Screen", screen.ProductName())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	staging := t.TempDir()
	cfg := test_config(dir)
	cfg.Watch = true
	m, err := New(cfg, quiet)
	require.NoError(t, err)
	defer m.Close()
	require.Len(t, m.Profiles(), 2)

	data := named_profile(t, "Added")
	i := 0
	require.Eventually(t, func() bool {
		// keep adding profiles until the watcher is running
		i++
		tmp := filepath.Join(staging, "p.icc")
		if os.WriteFile(tmp, data, 0o644) != nil || os.Rename(tmp, filepath.Join(dir, fmt.Sprintf("p%03d.icc", i))) != nil {
			return false
		}
		for _, p := range m.Profiles() {
			if p.ProductName() == "Added" {
				return true
			}
		}
		return false
	}, 10*time.Second, 100*time.Millisecond)
}

func TestWatchCancel(t *testing.T) {
	m, err := New(test_config(t.TempDir()), quiet)
	require.NoError(t, err)
	defer m.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}
