package ledger

import (
	"time"

	"caisse/internal/core"
)

// demoSnapshot builds the sample books shown on first run: one client with
// a partly paid engagement, one expense and one other income, dated t.
// They live only in memory and are never written to the remote.
func demoSnapshot(t time.Time, settings core.Settings) core.Snapshot {
	today := core.DateOf(t)
	created := core.Timestamp(t)

	client := core.Client{
		ID:         "c1",
		Name:       "Pâtisserie Douceur",
		Type:       core.Patisserie,
		Phone:      "+237 6 XX XX XX",
		DefaultFee: 50000,
		CreatedAt:  created,
	}
	part := core.PaymentPart{
		ID:              "pp1",
		PaymentTargetID: "pt1",
		Amount:          60000,
		Date:            today,
		Note:            "Acompte",
		Split:           core.Allocate(60000, settings.Ratios),
	}
	target := core.PaymentTarget{
		ID:          "pt1",
		ClientID:    client.ID,
		Title:       "Séance shooting catalogue",
		TotalAmount: 150000,
		CreatedAt:   created,
		DueDate:     today,
	}
	target.Status = core.DeriveStatus(target.TotalAmount, []core.PaymentPart{part})

	return core.Snapshot{
		Clients:        []core.Client{client},
		PaymentTargets: []core.PaymentTarget{target},
		PaymentParts:   []core.PaymentPart{part},
		Expenses: []core.Expense{{
			ID:       "e1",
			UserID:   "admin",
			Amount:   15000,
			Category: "Matériel",
			Date:     today,
			Note:     "Location lumière",
			Type:     core.Business,
		}},
		OtherIncome: []core.OtherIncome{{
			ID:        "oi1",
			Amount:    25000,
			Date:      today,
			Source:    "Vente photo",
			Note:      "Revenu de démo",
			CreatedAt: created,
			Split:     core.Allocate(25000, settings.Ratios),
		}},
		Settings: settings,
	}
}
