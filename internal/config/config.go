package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/franciscod/campus-fetch/internal/extract"
	"github.com/franciscod/campus-fetch/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "campus-fetch"

	// DefaultBaseURL is the campus every path is resolved against.
	DefaultBaseURL = "https://campus.exactas.uba.ar/"

	// DefaultLoginMethod posts the Moodle login form.
	DefaultLoginMethod = "form"

	// DefaultOutputDir holds one directory per course.
	DefaultOutputDir = "downloads"

	// DefaultShadowDir holds the previous run of each course while it is
	// being synchronized again.
	DefaultShadowDir = ".old"

	// DefaultBulletMark is the list marker of the converted text.
	DefaultBulletMark = "-"

	// DefaultTimeout applies to each request. Course files can be large
	// and the campus is slow during exam weeks.
	DefaultTimeout = 120 * time.Second

	// DefaultBatchSize is the number of courses synchronized at once.
	DefaultBatchSize = 2

	// DefaultUserAgent identifies campus-fetch in HTTP requests.
	DefaultUserAgent = "campus-fetch/1.0 (+https://github.com/franciscod/campus-fetch)"

	// DefaultMaxBodySize limits every response body read into memory.
	DefaultMaxBodySize = 512 * 1024 * 1024 // 512MB

	// DefaultReportFormat is the plain-text run summary.
	DefaultReportFormat = "text"
)

// Config holds all configuration options for campus-fetch.
// It is populated from the config file, the environment and CLI flags,
// in that order, and passed down explicitly.
type Config struct {
	// BaseURL is the campus origin. Relative paths resolve against it.
	BaseURL string

	// LoginMethod is "form", "idex" or "none".
	LoginMethod string

	// Username and Password are the campus credentials.
	Username string
	Password string

	// SessionCookie is sent with every request, for example
	// "MoodleSession=abc". With LoginMethod "none" it is the only session.
	SessionCookie string

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string

	// Courses are the roots synchronized by the sync command.
	Courses []model.SyncRoot

	// OutputDir is the live tree, one directory per course.
	OutputDir string

	// ShadowDir holds the previous run of a course during its sync.
	ShadowDir string

	// Forums enables forum and discussion crawling.
	Forums bool

	// KeepShadow keeps the previous run after a successful sync.
	KeepShadow bool

	// BulletMark is the list marker of the converted text.
	BulletMark string

	// IgnorePatterns are URL path patterns never fetched.
	IgnorePatterns []string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// BatchSize is the number of courses synchronized concurrently.
	BatchSize int

	// UserAgent is the User-Agent header of every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string

	// ReportFormat is "text", "markdown" or "json".
	ReportFormat string

	// ReportFile receives the run report instead of stdout when set.
	ReportFile string

	// DBDir is the directory of the run history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB records every run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		LoginMethod:  DefaultLoginMethod,
		OutputDir:    DefaultOutputDir,
		ShadowDir:    DefaultShadowDir,
		BulletMark:   DefaultBulletMark,
		Timeout:      DefaultTimeout,
		BatchSize:    DefaultBatchSize,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		ReportFormat: DefaultReportFormat,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for campus-fetch.
// On Linux: ~/.local/share/campus-fetch
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for campus-fetch.
// On Linux: ~/.config/campus-fetch
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for campus-fetch.
// On Linux: ~/.cache/campus-fetch
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}

	switch strings.ToLower(c.LoginMethod) {
	case "", "form", "idex":
	case "none":
		if c.SessionCookie == "" {
			return ErrNoSessionCookie
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLoginMethod, c.LoginMethod)
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.ReportFormat {
	case "text", "markdown", "md", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidReportFormat, c.ReportFormat)
	}

	if c.BulletMark != "" && !extract.ValidBulletMark(c.BulletMark) {
		return fmt.Errorf("%w: %q", ErrInvalidBulletMark, c.BulletMark)
	}

	if err := checkTrees(c.OutputDir, c.ShadowDir); err != nil {
		return err
	}

	return checkCourses(c.Courses)
}

// checkTrees rejects live and shadow trees that are the same directory or
// nested in one another once made absolute.
func checkTrees(output, shadow string) error {
	out, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	sh, err := filepath.Abs(shadow)
	if err != nil {
		return fmt.Errorf("failed to resolve shadow directory: %w", err)
	}
	if out == sh {
		return ErrSameOutputAndShadow
	}
	if within(out, sh) || within(sh, out) {
		return fmt.Errorf("%w: %s and %s", ErrNestedOutputAndShadow, output, shadow)
	}
	return nil
}

// within reports whether path lies below dir. Both must be clean.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// checkCourses rejects courses sharing an id or an output directory.
func checkCourses(courses []model.SyncRoot) error {
	ids := make(map[string]bool, len(courses))
	slugs := make(map[string]string, len(courses))
	for _, course := range courses {
		if ids[course.ID] {
			return fmt.Errorf("%w: id %s listed twice", ErrDuplicateCourse, course.ID)
		}
		ids[course.ID] = true

		slug := course.Slug()
		if other, ok := slugs[slug]; ok {
			return fmt.Errorf("%w: courses %s and %s both write to %q", ErrDuplicateCourse, other, course.ID, slug)
		}
		slugs[slug] = course.ID
	}
	return nil
}

// RequireCourses reports ErrNoCourse when there is nothing to synchronize.
func (c *Config) RequireCourses() error {
	if len(c.Courses) == 0 {
		return ErrNoCourse
	}
	return nil
}

// ParseRoot parses a course argument of the form "id" or "id:name".
func ParseRoot(arg string) (model.SyncRoot, error) {
	id, name, _ := strings.Cut(arg, ":")
	id = strings.TrimSpace(id)
	if id == "" || strings.Trim(id, "0123456789") != "" {
		return model.SyncRoot{}, fmt.Errorf("%w: %q", ErrInvalidCourse, arg)
	}
	return model.SyncRoot{ID: id, Name: strings.TrimSpace(name)}, nil
}
