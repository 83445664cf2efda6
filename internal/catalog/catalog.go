package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/franciscod/campus-fetch/internal/extract"
	"github.com/franciscod/campus-fetch/internal/fetcher"
	"github.com/franciscod/campus-fetch/internal/model"
)

const (
	dashboardPath     = "my/courses.php"
	servicePath       = "lib/ajax/service.php"
	enrolledCoursesWS = "core_course_get_enrolled_courses_by_timeline_classification"
)

// Client is the authenticated transport of the catalog.
type Client interface {
	Get(ctx context.Context, ref string) (*fetcher.Response, error)
	PostJSON(ctx context.Context, ref string, v any) (*fetcher.Response, error)
}

// Course is one enrolled course as returned by the web service.
type Course struct {
	ID        int    `json:"id"`
	FullName  string `json:"fullname"`
	ShortName string `json:"shortname"`
	ViewURL   string `json:"viewurl"`
}

// Root returns the SyncRoot of the course.
func (c Course) Root() model.SyncRoot {
	return model.SyncRoot{ID: strconv.Itoa(c.ID), Name: c.FullName}
}

// Roots converts courses to SyncRoots, keeping their order.
func Roots(courses []Course) []model.SyncRoot {
	roots := make([]model.SyncRoot, 0, len(courses))
	for _, c := range courses {
		roots = append(roots, c.Root())
	}
	return roots
}

// serviceCall is one entry of an AJAX web service request.
type serviceCall struct {
	Index      int            `json:"index"`
	MethodName string         `json:"methodname"`
	Args       map[string]any `json:"args"`
}

// serviceResult is one entry of an AJAX web service response.
type serviceResult struct {
	Error     bool `json:"error"`
	Exception *struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorcode"`
	} `json:"exception"`
	Data struct {
		Courses []Course `json:"courses"`
	} `json:"data"`
}

// Catalog queries course listings.
type Catalog struct {
	client Client
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// New creates a Catalog on an authenticated client.
func New(client Client, opts ...Option) *Catalog {
	c := &Catalog{client: client}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// SessKey reads the session key from the course dashboard.
func (c *Catalog) SessKey(ctx context.Context) (string, error) {
	resp, err := c.client.Get(ctx, dashboardPath)
	if err != nil {
		return "", fmt.Errorf("failed to fetch dashboard: %w", err)
	}
	page, err := extract.NewPage(resp.Body, resp.FinalURL)
	if err != nil {
		return "", err
	}
	return page.SessKey()
}

// EnrolledCourses returns every course of the account, sorted by full name.
func (c *Catalog) EnrolledCourses(ctx context.Context) ([]Course, error) {
	sesskey, err := c.SessKey(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{"sesskey": {sesskey}, "info": {enrolledCoursesWS}}
	calls := []serviceCall{{
		Index:      0,
		MethodName: enrolledCoursesWS,
		Args: map[string]any{
			"offset":           0,
			"limit":            0,
			"classification":   "all",
			"sort":             "fullname",
			"customfieldname":  "",
			"customfieldvalue": "",
		},
	}}

	resp, err := c.client.PostJSON(ctx, servicePath+"?"+query.Encode(), calls)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", enrolledCoursesWS, err)
	}

	var results []serviceResult
	if err := json.Unmarshal(resp.Body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", enrolledCoursesWS, err)
	}
	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	result := results[0]
	if result.Error {
		if result.Exception != nil {
			return nil, fmt.Errorf("%w: %s (%s)", ErrServiceFailed, result.Exception.Message, result.Exception.ErrorCode)
		}
		return nil, ErrServiceFailed
	}

	c.logger.Debug("listed enrolled courses", "count", len(result.Data.Courses))
	return result.Data.Courses, nil
}
