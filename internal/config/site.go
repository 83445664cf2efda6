package config

import (
	"time"

	"github.com/franciscod/campus-fetch/internal/model"
)

// SiteConfig holds the campus and how to authenticate against it.
type SiteConfig struct {
	// URL is the campus origin, e.g. "https://campus.exactas.uba.ar/".
	URL string `yaml:"url,omitempty"`

	// Login is the login method: form, idex or none.
	Login string `yaml:"login,omitempty"`

	// Username and Password are the campus credentials. The environment
	// variables CAMPUS_FETCH_USERNAME and CAMPUS_FETCH_PASSWORD win over them.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Cookie is an HTTP cookie sent with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the default User-Agent.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .campus-fetch configuration file.
type File struct {
	Site SiteConfig `yaml:"site,omitempty"`

	// Courses are the roots synchronized when sync gets no arguments.
	Courses []model.SyncRoot `yaml:"courses,omitempty"`

	Output     string `yaml:"output,omitempty"`
	Shadow     string `yaml:"shadow,omitempty"`
	Forums     *bool  `yaml:"forums,omitempty"`
	KeepShadow *bool  `yaml:"keepShadow,omitempty"`
	Bullet     string `yaml:"bullet,omitempty"`

	// IgnorePatterns are URL path patterns never fetched.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	Timeout   time.Duration `yaml:"timeout,omitempty"`
	BatchSize int           `yaml:"batchSize,omitempty"`
	Report    string        `yaml:"report,omitempty"`
	DBDir     string        `yaml:"dbDir,omitempty"`
}

// Apply copies every value set in the file over cfg.
func (cf *File) Apply(cfg *Config) {
	site := cf.Site
	if site.URL != "" {
		cfg.BaseURL = site.URL
	}
	if site.Login != "" {
		cfg.LoginMethod = site.Login
	}
	if site.Username != "" {
		cfg.Username = site.Username
	}
	if site.Password != "" {
		cfg.Password = site.Password
	}
	if site.Cookie != "" {
		cfg.SessionCookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			cfg.Headers[k] = v
		}
	}
	if site.UserAgent != "" {
		cfg.UserAgent = site.UserAgent
	}

	if len(cf.Courses) > 0 {
		cfg.Courses = cf.Courses
	}
	if cf.Output != "" {
		cfg.OutputDir = cf.Output
	}
	if cf.Shadow != "" {
		cfg.ShadowDir = cf.Shadow
	}
	if cf.Forums != nil {
		cfg.Forums = *cf.Forums
	}
	if cf.KeepShadow != nil {
		cfg.KeepShadow = *cf.KeepShadow
	}
	if cf.Bullet != "" {
		cfg.BulletMark = cf.Bullet
	}
	if len(cf.IgnorePatterns) > 0 {
		cfg.IgnorePatterns = cf.IgnorePatterns
	}
	if cf.Timeout != 0 {
		cfg.Timeout = cf.Timeout
	}
	if cf.BatchSize != 0 {
		cfg.BatchSize = cf.BatchSize
	}
	if cf.Report != "" {
		cfg.ReportFormat = cf.Report
	}
	if cf.DBDir != "" {
		cfg.DBDir = cf.DBDir
	}
}

// Environment variables read by ApplyEnv.
const (
	EnvUsername = "CAMPUS_FETCH_USERNAME"
	EnvPassword = "CAMPUS_FETCH_PASSWORD"
	EnvCookie   = "CAMPUS_FETCH_COOKIE"
)

// ApplyEnv copies the credentials found by lookup over cfg.
// Pass os.LookupEnv outside of tests.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvUsername); ok && v != "" {
		cfg.Username = v
	}
	if v, ok := lookup(EnvPassword); ok && v != "" {
		cfg.Password = v
	}
	if v, ok := lookup(EnvCookie); ok && v != "" {
		cfg.SessionCookie = v
	}
}
