package uri

import (
	"context"

	"github.com/hn4dev/hn4core/cortex"
	"github.com/hn4dev/hn4core/status"
	"github.com/hn4dev/hn4core/volume"
)

// Resolver executes a parsed Path against the Cortex Lookup/Resonance
// Scan and applies the optional #time:/#gen: slice.
type Resolver struct {
	Lookup *cortex.Lookup
}

func NewResolver(l *cortex.Lookup) *Resolver {
	return &Resolver{Lookup: l}
}

// Resolve executes p against vol. An `id:` path does a direct Cortex
// lookup; otherwise it runs a resonance scan over (name, tags).
func (r *Resolver) Resolve(ctx context.Context, vol *volume.Volume, p *Path) (status.Code, *volume.Anchor, error) {
	var code status.Code
	var anchor *volume.Anchor
	var err error

	switch p.Kind {
	case SelectByID:
		code, anchor, _, err = r.Lookup.ScanSlot(ctx, vol, p.ID)
	default:
		var res *cortex.ScanResult
		code, res, err = r.Lookup.Resonance(ctx, vol, cortex.ScanQuery{
			Name:         p.Name,
			RequiredTags: p.Tags,
			ThresholdPct: cortex.DefaultThresholdPct,
		})
		if res != nil {
			anchor = res.Anchor
		}
	}
	if err != nil {
		return code, anchor, err
	}

	return applySlice(anchor, p, code)
}

// applySlice enforces the slice engine's identity-only-not-history
// semantics: an anchor created after the target time is simply not found
// yet; one modified after the target time resolves to a different
// identity than the one the slice asked for.
func applySlice(a *volume.Anchor, p *Path, code status.Code) (status.Code, *volume.Anchor, error) {
	if p.HasTime {
		if uint64(a.CreateClock) > p.TimeNS {
			return status.NotFound, a, status.New(status.NotFound)
		}
		if a.ModClock > p.TimeNS {
			return status.TimeParadox, a, status.New(status.TimeParadox)
		}
	}
	if p.HasGen && a.WriteGen != p.Gen {
		return status.TimeParadox, a, status.New(status.TimeParadox)
	}
	return code, a, nil
}
