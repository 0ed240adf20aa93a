// Package rest implements the persistence port against a remote studio
// server.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// HTTPClient overrides the default client, Timeout is ignored then
	HTTPClient *http.Client
}

// Store talks to the /api routes of a studio server
type Store struct {
	base   string
	token  string
	client *http.Client
}

func New(opts Options) (*Store, error) {
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url '%s': %w", opts.BaseURL, err)
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Store{
		base:   strings.TrimRight(opts.BaseURL, "/") + "/api",
		token:  opts.Token,
		client: client,
	}, nil
}

func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// remoteError rebuilds the sentinel errors from the server's error code
func remoteError(status int, body []byte) error {
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	switch e.Code {
	case "not_found":
		return fmt.Errorf("%s: %w", e.Message, domain.ErrNotFound)
	case "incomplete_annotation":
		return fmt.Errorf("%s: %w", e.Message, domain.ErrIncompleteAnnotation)
	case "invalid_shape":
		return fmt.Errorf("%s: %w", e.Message, domain.ErrInvalidShape)
	case "invalid_task_status":
		return fmt.Errorf("%s: %w", e.Message, domain.ErrInvalidTaskStatus)
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%s: %w", e.Message, domain.ErrNotFound)
	}
	return fmt.Errorf("remote error %d: %s", status, e.Message)
}

// do sends in as JSON and decodes the response into out. A 404 is returned
// as an error wrapping domain.ErrNotFound.
func (s *Store) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("while encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("while calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("while reading response of %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		return remoteError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("while decoding response of %s %s: %w", method, path, err)
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}

// Projects

func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	err := s.do(ctx, http.MethodGet, "/projects", nil, &out)
	return out, err
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var out domain.Project
	err := s.do(ctx, http.MethodGet, "/projects/"+escape(id), nil, &out)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CreateProject(ctx context.Context, project domain.Project) error {
	return s.do(ctx, http.MethodPost, "/projects", project, nil)
}

func (s *Store) UpdateProject(ctx context.Context, id string, update domain.ProjectUpdate) error {
	return s.do(ctx, http.MethodPatch, "/projects/"+escape(id), update, nil)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/projects/"+escape(id), nil, nil)
}

// Images

func (s *Store) FetchImageDataByProjectID(ctx context.Context, projectID string) ([]domain.ImageData, error) {
	var out []domain.ImageData
	err := s.do(ctx, http.MethodGet, "/projects/"+escape(projectID)+"/images", nil, &out)
	return out, err
}

func (s *Store) FetchImageDataRange(ctx context.Context, projectID string, offset, limit int) ([]domain.ImageData, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid range offset=%d limit=%d", offset, limit)
	}
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	var out []domain.ImageData
	err := s.do(ctx, http.MethodGet, "/projects/"+escape(projectID)+"/images?"+q.Encode(), nil, &out)
	return out, err
}

func (s *Store) FetchImagesCount(ctx context.Context, projectID string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := s.do(ctx, http.MethodGet, "/projects/"+escape(projectID)+"/images/count", nil, &out)
	return out.Count, err
}

func (s *Store) GetImage(ctx context.Context, id string) (*domain.ImageData, error) {
	var out domain.ImageData
	err := s.do(ctx, http.MethodGet, "/images/"+escape(id), nil, &out)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) CreateImage(ctx context.Context, image domain.ImageData) error {
	return s.do(ctx, http.MethodPost, "/images", image, nil)
}

func (s *Store) UpdateImage(ctx context.Context, id string, update domain.ImageUpdate) error {
	return s.do(ctx, http.MethodPatch, "/images/"+escape(id), update, nil)
}

func (s *Store) DeleteImage(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/images/"+escape(id), nil, nil)
}

// Labels

func (s *Store) GetLabels(ctx context.Context) ([]domain.Label, error) {
	var out []domain.Label
	err := s.do(ctx, http.MethodGet, "/labels", nil, &out)
	return out, err
}

func (s *Store) GetLabelsByProjectID(ctx context.Context, projectID string) ([]domain.Label, error) {
	var out []domain.Label
	err := s.do(ctx, http.MethodGet, "/projects/"+escape(projectID)+"/labels", nil, &out)
	return out, err
}

func (s *Store) CreateLabel(ctx context.Context, label domain.Label, annotationIDs []string) error {
	body := struct {
		Label         domain.Label `json:"label"`
		AnnotationIDs []string     `json:"annotationIds"`
	}{label, annotationIDs}
	return s.do(ctx, http.MethodPost, "/labels", body, nil)
}

func (s *Store) UpdateLabel(ctx context.Context, id string, update domain.LabelUpdate) error {
	return s.do(ctx, http.MethodPatch, "/labels/"+escape(id), update, nil)
}

func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/labels/"+escape(id), nil, nil)
}

// Annotations

func (s *Store) GetAnnotations(ctx context.Context, imageID string) ([]domain.Annotation, error) {
	var out []domain.Annotation
	err := s.do(ctx, http.MethodGet, "/images/"+escape(imageID)+"/annotations", nil, &out)
	return out, err
}

func (s *Store) CreateAnnotation(ctx context.Context, annotation domain.Annotation) error {
	return s.do(ctx, http.MethodPost, "/annotations", annotation, nil)
}

func (s *Store) UpdateAnnotation(ctx context.Context, id string, update domain.AnnotationUpdate) error {
	return s.do(ctx, http.MethodPatch, "/annotations/"+escape(id), update, nil)
}

func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/annotations/"+escape(id), nil, nil)
}

// Tasks

func (s *Store) GetTasksByProjectID(ctx context.Context, projectID string) ([]domain.Task, error) {
	var out []domain.Task
	err := s.do(ctx, http.MethodGet, "/projects/"+escape(projectID)+"/tasks", nil, &out)
	return out, err
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var out domain.Task
	err := s.do(ctx, http.MethodGet, "/tasks/"+escape(id), nil, &out)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) SaveTask(ctx context.Context, task domain.Task) error {
	return s.do(ctx, http.MethodPut, "/tasks/"+escape(task.ID), task, nil)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/tasks/"+escape(id), nil, nil)
}

// Settings

func (s *Store) GetSettings(ctx context.Context, projectID string) ([]domain.Setting, error) {
	var out []domain.Setting
	err := s.do(ctx, http.MethodGet, "/projects/"+escape(projectID)+"/settings", nil, &out)
	return out, err
}

func (s *Store) SaveSetting(ctx context.Context, setting domain.Setting) error {
	path := "/projects/" + escape(setting.ProjectID) + "/settings/" + escape(setting.Key)
	return s.do(ctx, http.MethodPut, path, setting, nil)
}

func (s *Store) DeleteSetting(ctx context.Context, projectID, key string) error {
	return s.do(ctx, http.MethodDelete, "/projects/"+escape(projectID)+"/settings/"+escape(key), nil, nil)
}

var _ domain.Store = (*Store)(nil)
