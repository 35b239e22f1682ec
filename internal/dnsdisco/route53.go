package dnsdisco

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53Publisher upserts the TXT record in a Route53 hosted zone,
// mirroring cmd/devp2p's "dns" subcommand's AWS-backed tree publisher.
type Route53Publisher struct {
	client       *route53.Client
	hostedZoneID string
	ttl          int64
}

// NewRoute53Publisher loads the default AWS credential chain (env vars,
// shared config, IAM role) the same way the teacher's AWS-backed
// tooling does, rather than accepting raw keys in node configuration.
func NewRoute53Publisher(ctx context.Context, hostedZoneID string) (*Route53Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &Route53Publisher{
		client:       route53.NewFromConfig(cfg),
		hostedZoneID: hostedZoneID,
		ttl:          300,
	}, nil
}

func (p *Route53Publisher) PublishTXT(ctx context.Context, name, value string) error {
	_, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(p.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(name),
						Type: types.RRTypeTxt,
						TTL:  aws.Int64(p.ttl),
						ResourceRecords: []types.ResourceRecord{
							{Value: aws.String(`"` + value + `"`)},
						},
					},
				},
			},
		},
	})
	return err
}
