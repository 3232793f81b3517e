// Package datalimit computes suggested per-key data quotas from host
// transfer capacity and key count.
package datalimit

import (
	"context"

	"github.com/dustin/go-humanize"

	"outpostlabs/outpost/internal/domain"
)

// CeilingBytes caps every suggested default limit.
const CeilingBytes = int64(50 * humanize.GByte)

// fallbackCapacityBytes is assumed for servers without a managed host
// reporting a transfer allowance.
const fallbackCapacityBytes = int64(humanize.TByte)

// ComputeDefault suggests a default per-key quota: the host's monthly
// transfer capacity divided across the known access keys, capped at
// CeilingBytes. knownKeys may be nil, in which case the current key
// list is fetched from mgr.
//
// The suggestion degrades gracefully: any failure fetching keys or
// capacity yields the ceiling value rather than an error, so quota
// hints never block the UI.
func ComputeDefault(ctx context.Context, srv *domain.Server, mgr domain.Manager, knownKeys []domain.AccessKey) domain.DataLimit {
	if knownKeys == nil {
		keys, err := mgr.ListAccessKeys(ctx)
		if err != nil {
			return domain.DataLimit{Bytes: CeilingBytes}
		}
		knownKeys = keys
	}

	capacity := fallbackCapacityBytes
	if srv.IsManaged() {
		if transfer := srv.Host.MonthlyTransferBytes(); transfer > 0 {
			capacity = transfer
		}
	}

	count := int64(len(knownKeys))
	if count < 1 {
		count = 1
	}

	perKey := capacity / count
	if perKey > CeilingBytes {
		perKey = CeilingBytes
	}
	return domain.DataLimit{Bytes: perKey}
}
