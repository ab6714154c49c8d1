package observability

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// LokiConfig locates a Loki push endpoint.
type LokiConfig struct {
	URL      string
	Username string
	APIKey   string
	App      string
	Instance string
	Region   string
}

// Enabled reports whether enough is set to push.
func (c LokiConfig) Enabled() bool {
	return c.URL != "" && c.Username != "" && c.APIKey != ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// LokiConfigFromEnv reads GRAFANA_LOKI_URL, GRAFANA_LOKI_USER and
// GRAFANA_LOKI_API_KEY plus the instance labels.
func LokiConfigFromEnv() LokiConfig {
	return LokiConfig{
		URL:      os.Getenv("GRAFANA_LOKI_URL"),
		Username: os.Getenv("GRAFANA_LOKI_USER"),
		APIKey:   os.Getenv("GRAFANA_LOKI_API_KEY"),
		App:      firstNonEmpty(os.Getenv("APP_ENV"), "gitingest-mcp-dev"),
		Instance: firstNonEmpty(os.Getenv("INSTANCE_ID"), os.Getenv("RENDER_INSTANCE_ID"), os.Getenv("KOYEB_INSTANCE_ID"), "local"),
		Region:   firstNonEmpty(os.Getenv("INSTANCE_REGION"), os.Getenv("RENDER_REGION"), os.Getenv("KOYEB_REGION"), "local"),
	}
}

// LokiClient pushes single-line JSON entries to the Loki push API.
type LokiClient struct {
	cfg        LokiConfig
	pushURL    string
	httpClient *http.Client
}

// NewLokiClient creates a client for cfg.
func NewLokiClient(cfg LokiConfig) *LokiClient {
	return &LokiClient{
		cfg:        cfg,
		pushURL:    cfg.URL + "/loki/api/v1/push",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Push sends one entry with the given stream labels. The app, instance and
// region labels are always added.
func (c *LokiClient) Push(ctx context.Context, labels map[string]string, data map[string]any) error {
	stream := make(map[string]string, len(labels)+3)
	for k, v := range labels {
		stream[k] = v
	}
	stream["app"] = c.cfg.App
	stream["instance"] = c.cfg.Instance
	stream["region"] = c.cfg.Region

	line := encodeLine(data)

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("streams")
	e.ArrStart()
	e.ObjStart()
	e.FieldStart("stream")
	e.ObjStart()
	for k, v := range stream {
		e.FieldStart(k)
		e.Str(v)
	}
	e.ObjEnd()
	e.FieldStart("values")
	e.ArrStart()
	e.ArrStart()
	e.Str(strconv.FormatInt(time.Now().UnixNano(), 10))
	e.Str(line)
	e.ArrEnd()
	e.ArrEnd()
	e.ObjEnd()
	e.ArrEnd()
	e.ObjEnd()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pushURL, bytes.NewReader(e.Bytes()))
	if err != nil {
		return errors.Wrap(err, "create loki request")
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send loki push")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("loki push: unexpected status code %d", resp.StatusCode)
	}
	return nil
}

// encodeLine renders data as one JSON object. Values that are not plain
// scalars are written with their fmt representation.
func encodeLine(data map[string]any) string {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	for k, v := range data {
		e.FieldStart(k)
		switch val := v.(type) {
		case nil:
			e.Null()
		case string:
			e.Str(val)
		case bool:
			e.Bool(val)
		case int:
			e.Int(val)
		case int64:
			e.Int64(val)
		case float64:
			e.Float64(val)
		case error:
			e.Str(val.Error())
		default:
			e.Str(fmt.Sprint(val))
		}
	}
	e.ObjEnd()
	return e.String()
}
