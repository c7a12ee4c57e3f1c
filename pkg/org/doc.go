// Package org discovers the accounts of an AWS organization.
//
// # Overview
//
// Discovery pages through ListAccounts and, for every account found, reads
// the account's tags with ListTagsForResource. Three tags classify an account:
//
//   - catapult.controlant.com/environment
//   - catapult.controlant.com/tier
//   - catapult.controlant.com/domain
//
// Any other tag is ignored. A missing classification tag leaves the
// corresponding Account field empty.
//
// # Usage
//
//	cfg, err := session.AssumeRole(ctx, session.Config{
//	    RoleARN: "arn:aws:iam::123456789012:role/org-reader",
//	    Region:  "us-east-1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	accounts, err := org.DiscoverAccounts(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Errors
//
// All failures are returned as *Error. Use IsKind to branch on the failure
// and IsRetryable to decide whether rerunning discovery is worthwhile.
// Discovery never returns a partial result.
//
// # Concurrency
//
// Tags are read with one goroutine per account. WithConcurrency caps the
// number of readers in flight for large organizations.
package org
