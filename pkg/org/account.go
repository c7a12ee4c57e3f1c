package org

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
)

// Classification tag keys maintained on accounts in the management account.
const (
	TagEnvironment = "catapult.controlant.com/environment"
	TagTier        = "catapult.controlant.com/tier"
	TagDomain      = "catapult.controlant.com/domain"
)

// Account is an AWS account in the organization together with its
// classification tags.
type Account struct {
	// ID is the AWS account ID.
	ID string `json:"id" yaml:"id"`

	// Environment usually maps to the account name, but is read from a tag
	// controlled in the management account rather than from the account itself.
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`

	// Tier is the account tier.
	Tier string `json:"tier,omitempty" yaml:"tier,omitempty"`

	// Domain is the short domain ID the account belongs to.
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// classificationTags maps each recognised tag key to the field it populates.
var classificationTags = map[string]func(*Account, string){
	TagEnvironment: func(a *Account, v string) { a.Environment = v },
	TagTier:        func(a *Account, v string) { a.Tier = v },
	TagDomain:      func(a *Account, v string) { a.Domain = v },
}

// TagsAPI is the subset of the Organizations API needed to read one account.
type TagsAPI interface {
	ListTagsForResource(ctx context.Context, params *organizations.ListTagsForResourceInput, optFns ...func(*organizations.Options)) (*organizations.ListTagsForResourceOutput, error)
}

// ReadAccount fetches the tags of account id and extracts its classification.
// Tags with unrecognised keys are ignored.
func ReadAccount(ctx context.Context, client TagsAPI, id string) (Account, error) {
	out, err := client.ListTagsForResource(ctx, &organizations.ListTagsForResourceInput{
		ResourceId: aws.String(id),
	})
	if err != nil {
		return Account{}, errListTags(id, err)
	}
	if out == nil || out.Tags == nil {
		return Account{}, errBadTags(id)
	}

	return accountFromTags(id, out.Tags), nil
}

func accountFromTags(id string, tags []types.Tag) Account {
	acc := Account{ID: id}
	for _, tag := range tags {
		if tag.Key == nil {
			continue
		}
		if set, ok := classificationTags[*tag.Key]; ok {
			set(&acc, aws.ToString(tag.Value))
		}
	}
	return acc
}
