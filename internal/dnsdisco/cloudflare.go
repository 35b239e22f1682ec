package dnsdisco

import (
	"context"

	"github.com/cloudflare/cloudflare-go"
)

// CloudflarePublisher upserts the TXT record in a Cloudflare-managed
// zone, the second provider cmd/devp2p's "dns" subcommand supports
// alongside Route53.
type CloudflarePublisher struct {
	api    *cloudflare.API
	zoneID string
}

// NewCloudflarePublisher authenticates with an API token, the scheme
// cloudflare-go recommends over the legacy global API key.
func NewCloudflarePublisher(apiToken, zoneID string) (*CloudflarePublisher, error) {
	api, err := cloudflare.NewWithAPIToken(apiToken)
	if err != nil {
		return nil, err
	}
	return &CloudflarePublisher{api: api, zoneID: zoneID}, nil
}

// PublishTXT does not use ctx: this version of cloudflare-go predates
// the SDK's context-aware method signatures.
func (p *CloudflarePublisher) PublishTXT(ctx context.Context, name, value string) error {
	existing, err := p.findRecord(name)
	if err != nil {
		return err
	}
	if existing != "" {
		return p.api.UpdateDNSRecord(p.zoneID, existing, cloudflare.DNSRecord{
			Type:    "TXT",
			Name:    name,
			Content: value,
		})
	}
	_, err = p.api.CreateDNSRecord(p.zoneID, cloudflare.DNSRecord{
		Type:    "TXT",
		Name:    name,
		Content: value,
		TTL:     300,
	})
	return err
}

func (p *CloudflarePublisher) findRecord(name string) (string, error) {
	records, err := p.api.DNSRecords(p.zoneID, cloudflare.DNSRecord{Type: "TXT", Name: name})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].ID, nil
}
