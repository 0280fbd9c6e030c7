package catalog

import (
	"context"
	"fmt"

	"github.com/roach88/normativ/internal/store"
)

// Seed writes the catalog into the store in one transaction and returns the
// ids it resolved. Seeding the same catalog twice changes nothing.
// The catalog must pass Validate.
func Seed(ctx context.Context, st *store.Store, c *Catalog) (*Symbols, error) {
	if errs := Validate(c); len(errs) > 0 {
		return nil, fmt.Errorf("seed catalog: %w (and %d more)", errs[0], len(errs)-1)
	}

	sym := newSymbols()
	err := st.WithTx(ctx, store.TxOptions{}, func(tx *store.Tx) error {
		sym = newSymbols()

		for _, r := range c.Ranks {
			id, err := tx.EnsureRank(ctx, r.ShortName, r.FullName, r.Prestige)
			if err != nil {
				return err
			}
			sym.Ranks[r.ShortName] = id
		}

		for _, pt := range c.ParameterTypes {
			typeID, err := tx.EnsureParameterType(ctx, pt.Name)
			if err != nil {
				return err
			}
			for _, v := range pt.Values {
				id, err := tx.EnsureParameter(ctx, typeID, v)
				if err != nil {
					return err
				}
				sym.Parameters[ParameterRef{Type: pt.Name, Value: v}.String()] = id
			}
		}

		for _, rt := range c.RequirementTypes {
			typeID, err := tx.EnsureRequirementType(ctx, rt.Name)
			if err != nil {
				return err
			}
			for _, r := range rt.Requirements {
				id, err := tx.EnsureRequirement(ctx, typeID, r.Value, r.Description)
				if err != nil {
					return err
				}
				sym.Requirements[rt.Name+"/"+r.Value] = id
			}
		}

		for _, sport := range c.Sports {
			sportID, err := tx.EnsureSport(ctx, sport.Name)
			if err != nil {
				return err
			}
			sym.Sports[sport.Key] = sportID

			for _, d := range sport.Disciplines {
				disciplineID, err := tx.EnsureDiscipline(ctx, sportID, d.Code, d.Name)
				if err != nil {
					return err
				}
				dref := sport.Key + "/" + d.Key
				sym.Disciplines[dref] = disciplineID

				for _, p := range d.Parameters {
					linkID, err := tx.EnsureLink(ctx, disciplineID, sym.Parameters[p.String()])
					if err != nil {
						return err
					}
					sym.Links[dref+"/"+p.String()] = linkID
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return sym, nil
}
