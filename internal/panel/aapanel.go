package panel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Brownie44l1/lumistore/internal/models"
)

const (
	DefaultPHPVersion = "74"
	defaultTimeout    = 30 * time.Second
)

// AAPanelClient talks to the hosting control panel API.
type AAPanelClient struct {
	http       *resty.Client
	apiKey     string
	phpVersion string
}

func NewAAPanelClient(baseURL, apiKey, phpVersion string, timeout time.Duration) *AAPanelClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if phpVersion == "" {
		phpVersion = DefaultPHPVersion
	}
	return &AAPanelClient{
		http:       resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout),
		apiKey:     apiKey,
		phpVersion: phpVersion,
	}
}

type createSiteRequest struct {
	Domain     string `json:"domain"`
	PHPVersion string `json:"php_version"`
	SSL        bool   `json:"ssl"`
	FTP        bool   `json:"ftp"`
	Database   bool   `json:"database"`
}

type createSiteResponse struct {
	Status      *bool             `json:"status,omitempty"`
	Msg         string            `json:"msg,omitempty"`
	SiteID      models.FlexString `json:"site_id"`
	FTPUsername string            `json:"ftp_username"`
	FTPPassword string            `json:"ftp_password"`
}

// Provision creates a website with FTP access and a database for domain.
func (c *AAPanelClient) Provision(ctx context.Context, domain string) (*models.Site, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: domain is required", models.ErrProvisioning)
	}

	var out createSiteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Auth-Token", c.apiKey).
		SetHeader("timestamp", strconv.FormatInt(time.Now().Unix(), 10)).
		SetBody(createSiteRequest{
			Domain:     domain,
			PHPVersion: c.phpVersion,
			SSL:        true,
			FTP:        true,
			Database:   true,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/api/website/create")

	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w: %v", models.ErrProvisioning, models.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrProvisioning, err)
	}
	if resp.IsError() || (out.Status != nil && !*out.Status) {
		msg := out.Msg
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("%w: create website rejected: %s", models.ErrProvisioning, msg)
	}
	if out.SiteID == "" {
		return nil, fmt.Errorf("%w: create website returned no site id", models.ErrProvisioning)
	}

	return &models.Site{
		SiteID:      string(out.SiteID),
		FTPUsername: out.FTPUsername,
		FTPPassword: out.FTPPassword,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
