// Package manager keeps track of the color profiles installed on the system
// and the display and output profiles chosen by the user, and corrects
// images for display or printing with them.
package manager

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"seehuhn.de/go/icc"

	"github.com/f-spot/cms"
	"github.com/f-spot/cms/convert"
)

// Manager is safe for concurrent use. Profiles and transforms it returns
// are owned by it. Reloading, by hand or because a watched directory
// changed, replaces them without closing the old ones, which stay usable
// until they are garbage collected. Close releases the current ones.
type Manager struct {
	mutex  sync.RWMutex
	cfg    Config
	logger *slog.Logger
	screen cms.Screen

	profiles       []*cms.Profile
	owned          []*cms.Profile
	screen_profile *cms.Profile
	display        *cms.Profile
	output         *cms.Profile
	standard       *cms.Transform

	stop_watching context.CancelFunc
	watching      sync.WaitGroup
}

type Option func(*Manager)

// WithLogger sets the logger used to report problems with profile files.
// The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithScreen sets the screen whose profile is offered as a display
// profile. It takes precedence over Config.ScreenProfile.
func WithScreen(s cms.Screen) Option {
	return func(m *Manager) { m.screen = s }
}

// New creates a Manager and loads the profiles from the search
// directories of cfg. When cfg.Watch is set the directories are watched
// for changes until Close.
func New(cfg Config, opts ...Option) (*Manager, error) {
	m := &Manager{cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(m)
	}
	if m.screen == nil && cfg.ScreenProfile != "" {
		m.screen = cms.ScreenProfileFile(cfg.ScreenProfile)
	}
	if err := m.LoadSettings(); err != nil {
		m.Close()
		return nil, err
	}
	if cfg.Watch {
		ctx, cancel := context.WithCancel(context.Background())
		m.stop_watching = cancel
		m.watching.Add(1)
		go func() {
			defer m.watching.Done()
			_ = m.Watch(ctx)
		}()
	}
	return m, nil
}

func is_profile_file(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".icc", ".icm":
		return true
	}
	return false
}

// open_rgb_profile returns nil for files that are not RGB profiles
func open_rgb_profile(path string) (*cms.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// reading the header is enough to skip most profiles
	if h, err := icc.Decode(data); err == nil && h.ColorSpace != icc.RGBSpace {
		return nil, nil
	}
	p, err := cms.NewProfile(data)
	if err != nil {
		return nil, err
	}
	if p.ColorSpace() != cms.ColorSpaceRgb {
		p.Close()
		return nil, nil
	}
	return p, nil
}

// scan returns the RGB profiles found under dir, in lexical order
func (m *Manager) scan(dir string) (ans []*cms.Profile) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != dir {
				m.logger.Warn("cannot read color profile directory", "path", path, "err", err)
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !is_profile_file(path) {
			return nil
		}
		p, err := open_rgb_profile(path)
		switch {
		case err != nil:
			m.logger.Warn("skipping unusable color profile", "path", path, "err", err)
		case p == nil:
			m.logger.Debug("skipping color profile that is not RGB", "path", path)
		default:
			ans = append(ans, p)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn("cannot scan color profile directory", "path", dir, "err", err)
	}
	return
}

// forget drops the current profiles and transform. They may still be in use
// by callers so they are left to their finalizers.
func (m *Manager) forget() {
	m.owned, m.profiles, m.screen_profile = nil, nil, nil
	m.display, m.output, m.standard = nil, nil, nil
}

func (m *Manager) release() {
	for _, p := range m.owned {
		p.Close()
	}
	if m.standard != nil {
		m.standard.Close()
	}
	m.forget()
}

func (m *Manager) find(name string) (ans *cms.Profile) {
	if name == "" {
		return nil
	}
	for _, p := range m.profiles {
		if p.ProductName() == name {
			ans = p
		}
	}
	return
}

func (m *Manager) load_screen_profile() {
	if m.screen == nil {
		return
	}
	p, err := cms.GetScreenProfile(m.screen)
	if err != nil {
		m.logger.Warn("cannot load the screen color profile", "err", err)
		return
	}
	if p == nil {
		return
	}
	if p.ColorSpace() != cms.ColorSpaceRgb {
		m.logger.Info("ignoring screen color profile that is not RGB", "profile", p.String(), "space", p.ColorSpace())
		p.Close()
		return
	}
	m.owned = append(m.owned, p)
	m.screen_profile = p
	if m.find(p.ProductName()) == nil {
		m.profiles = append(m.profiles, p)
	}
}

func (m *Manager) choose_profiles() {
	m.display = nil
	if m.cfg.UseScreenProfile && m.screen_profile != nil {
		m.display = m.screen_profile
	} else if m.display = m.find(m.cfg.DisplayProfile); m.display == nil {
		if m.cfg.DisplayProfile != "" {
			m.logger.Warn("display color profile not found, using sRGB", "name", m.cfg.DisplayProfile)
		}
		m.display = cms.CreateStandardRgb()
	}
	if m.output = m.find(m.cfg.OutputProfile); m.output == nil {
		if m.cfg.OutputProfile != "" {
			m.logger.Warn("output color profile not found, using sRGB", "name", m.cfg.OutputProfile)
		}
		m.output = cms.CreateStandardRgb()
	}
}

func (m *Manager) create_standard_transform() error {
	m.standard = nil
	t, err := cms.NewMultiProfileTransform([]*cms.Profile{cms.CreateStandardRgb(), m.display}, cms.Rgb8, cms.Rgb8, cms.Perceptual, 0)
	if err != nil {
		return fmt.Errorf("cannot create the display transform for %s: %w", m.display, err)
	}
	m.standard = t
	return nil
}

// LoadSettings rescans the search directories and the screen profile then
// chooses the display and output profiles again
func (m *Manager) LoadSettings() error {
	dirs, err := m.cfg.search_dirs()
	if err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.forget()
	alt, err := cms.CreateAlternateRgb()
	if err != nil {
		return err
	}
	m.owned = append(m.owned, alt)
	m.profiles = append(m.profiles, cms.CreateStandardRgb(), alt)
	for _, d := range dirs {
		found := m.scan(d)
		m.owned = append(m.owned, found...)
		m.profiles = append(m.profiles, found...)
	}
	m.load_screen_profile()
	m.choose_profiles()
	m.logger.Info("loaded color profiles", "count", len(m.profiles), "display", m.display.String(), "output", m.output.String())
	return m.create_standard_transform()
}

// ReloadSettings chooses the display and output profiles again without
// rescanning the search directories
func (m *Manager) ReloadSettings() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.screen_profile != nil {
		// drop the previous screen profile
		m.profiles = slices.DeleteFunc(m.profiles, func(p *cms.Profile) bool { return p == m.screen_profile })
		m.owned = slices.DeleteFunc(m.owned, func(p *cms.Profile) bool { return p == m.screen_profile })
		m.screen_profile = nil
	}
	m.load_screen_profile()
	m.choose_profiles()
	return m.create_standard_transform()
}

// Config returns the current settings, including the names of profiles
// selected with SetDisplayProfile and SetOutputProfile
func (m *Manager) Config() Config {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ans := m.cfg
	ans.SearchDirs = slices.Clone(m.cfg.SearchDirs)
	return ans
}

// Profiles returns the known RGB profiles, starting with sRGB and the
// alternate RGB profile
func (m *Manager) Profiles() []*cms.Profile {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return slices.Clone(m.profiles)
}

func (m *Manager) ScreenProfile() *cms.Profile {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.screen_profile
}

func (m *Manager) DisplayProfile() *cms.Profile {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.display
}

func (m *Manager) OutputProfile() *cms.Profile {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.output
}

// remember records the name of p in the config when p is a known profile
func (m *Manager) remember(p *cms.Profile, name *string) {
	n := p.ProductName()
	if m.find(n) != nil {
		*name = n
	}
}

// SetDisplayProfile makes p the display profile and rebuilds the standard
// transform. p must stay open while it is in use.
func (m *Manager) SetDisplayProfile(p *cms.Profile) error {
	if p == nil {
		return errors.New("no display profile specified")
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.display = p
	m.remember(p, &m.cfg.DisplayProfile)
	return m.create_standard_transform()
}

// SetOutputProfile makes p the profile used for printing. p must stay open
// while it is in use.
func (m *Manager) SetOutputProfile(p *cms.Profile) error {
	if p == nil {
		return errors.New("no output profile specified")
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.output = p
	m.remember(p, &m.cfg.OutputProfile)
	return nil
}

// StandardTransform returns the cached sRGB to display transform for Rgb8
// pixels, or nil when color management is disabled
func (m *Manager) StandardTransform() *cms.Transform {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if !m.cfg.Enabled {
		return nil
	}
	return m.standard
}

// CreateTransform creates a transform from imageProfile to the display
// profile for the pixels of img: Rgba8 when img has transparency, Rgb8
// otherwise. A nil imageProfile means sRGB. When color management is
// disabled or img is nil, nil is returned. The caller must Close the
// transform.
func (m *Manager) CreateTransform(img image.Image, imageProfile *cms.Profile) (*cms.Transform, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if !m.cfg.Enabled || img == nil {
		return nil, nil
	}
	if imageProfile == nil {
		imageProfile = cms.CreateStandardRgb()
	}
	format, flags := cms.Rgb8, cms.Flags(0)
	if !convert.IsOpaque(img) {
		format, flags = cms.Rgba8, cms.CopyAlpha
	}
	return cms.NewMultiProfileTransform([]*cms.Profile{imageProfile, m.display}, format, format, cms.Perceptual, flags)
}

func (m *Manager) apply(img image.Image, src, dest *cms.Profile) (image.Image, error) {
	if src == nil {
		if n, ok := img.(*convert.NRGB); ok && dest == m.display {
			return n, convert.Apply(m.standard, n)
		}
		src = cms.CreateStandardRgb()
	}
	return convert.ToProfile(img, src, dest, cms.Perceptual, 0)
}

// ApplyScreenProfile corrects img, whose colors are described by
// imageProfile, for the display. A nil imageProfile means sRGB. RGB images
// are converted in place; others are converted to a new RGB image. When
// color management is disabled img is returned unchanged.
func (m *Manager) ApplyScreenProfile(img image.Image, imageProfile *cms.Profile) (image.Image, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if !m.cfg.Enabled || img == nil {
		return img, nil
	}
	return m.apply(img, imageProfile, m.display)
}

// ApplyPrinterProfile corrects img for the output profile, otherwise like
// ApplyScreenProfile
func (m *Manager) ApplyPrinterProfile(img image.Image, imageProfile *cms.Profile) (image.Image, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if !m.cfg.Enabled || img == nil {
		return img, nil
	}
	return m.apply(img, imageProfile, m.output)
}

// ApplyProfile converts img from src to dest regardless of whether color
// management is enabled
func (m *Manager) ApplyProfile(img image.Image, src, dest *cms.Profile) (image.Image, error) {
	if src == nil || dest == nil {
		return nil, errors.New("source and destination profiles are required")
	}
	return convert.ToProfile(img, src, dest, cms.Perceptual, 0)
}

// Close releases all profiles and transforms owned by the Manager
func (m *Manager) Close() {
	if m.stop_watching != nil {
		m.stop_watching()
		m.watching.Wait()
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.release()
}
