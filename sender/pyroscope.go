package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"go.uber.org/zap"
)

type PyroscopeConfig struct {
	URL       string
	AuthToken string
	AppName   string
	Tags      map[string]string
}

// Pyroscope uploads pprof profiles to a Pyroscope /ingest endpoint.
type Pyroscope struct {
	config           PyroscopeConfig
	sampleTypeConfig map[string]map[string]interface{}
	client           *http.Client
	logger           *zap.Logger
}

func NewPyroscope(config PyroscopeConfig, sampleTypeConfig map[string]map[string]interface{}, logger *zap.Logger) *Pyroscope {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pyroscope{
		config:           config,
		sampleTypeConfig: sampleTypeConfig,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// AppName renders the application name with its tags the way Pyroscope
// expects them, e.g. "app{env=dev,host=a}". Tags are sorted by key.
func (s *Pyroscope) AppName() string {
	if len(s.config.Tags) == 0 {
		return s.config.AppName
	}
	keys := make([]string, 0, len(s.config.Tags))
	for k := range s.config.Tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(s.config.AppName)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.config.Tags[k])
	}
	b.WriteByte('}')
	return b.String()
}

// SendProfile uploads prof covering the window [from, until].
func (s *Pyroscope) SendProfile(ctx context.Context, prof *profile.Profile, from, until time.Time) error {
	// Validate the profile
	if err := prof.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	// Convert the profile data to bytes
	var buf bytes.Buffer
	if err := prof.Write(&buf); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}

	sampleTypeConfigJSON, err := json.Marshal(s.sampleTypeConfig)
	if err != nil {
		return fmt.Errorf("marshalling sampleTypeConfig: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	profilePart, err := writer.CreateFormFile("profile", "profile.pprof")
	if err != nil {
		return fmt.Errorf("creating profile part: %w", err)
	}
	if _, err := profilePart.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing profile data: %w", err)
	}

	sampleTypeConfigPart, err := writer.CreateFormFile("sample_type_config", "config.json")
	if err != nil {
		return fmt.Errorf("creating sample_type_config part: %w", err)
	}
	if _, err := sampleTypeConfigPart.Write(sampleTypeConfigJSON); err != nil {
		return fmt.Errorf("writing sample_type_config data: %w", err)
	}

	// Close the writer to finalize the multipart form body
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing writer: %w", err)
	}

	params := url.Values{}
	params.Set("name", s.AppName())
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("until", strconv.FormatInt(until.Unix(), 10))

	endpoint := fmt.Sprintf("%s/ingest?%s", strings.TrimSuffix(s.config.URL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, string(respBody))
	}
	s.logger.Debug("Profile sent successfully",
		zap.String("app", s.AppName()),
		zap.Int("samples", len(prof.Sample)),
		zap.Int("bytes", buf.Len()))

	return nil
}
