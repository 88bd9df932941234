// Package analytics derives the dashboard's charts from the transaction and customer lists.
package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	transactiondomain "savings-admin/console/internal/transaction/domain"
	transactionrepo "savings-admin/console/internal/transaction/repository"
	userdomain "savings-admin/console/internal/user/domain"
	userrepo "savings-admin/console/internal/user/repository"
)

// Window sizes used by Load.
const (
	DefaultMonths = 6
	FetchLimit    = 1000
)

// MonthFlow is the deposit and withdrawal volume of one calendar month.
type MonthFlow struct {
	Year        int        `json:"year"`
	Month       time.Month `json:"-"`
	Label       string     `json:"month"`
	Deposits    float64    `json:"deposits"`
	Withdrawals float64    `json:"withdrawals"`
}

// Split counts customers by device verification.
type Split struct {
	Verified   int `json:"verified"`
	Unverified int `json:"unverified"`
	Total      int `json:"total"`
}

// Report is everything the analytics view shows.
type Report struct {
	Flows       []MonthFlow `json:"flows"`
	Devices     Split       `json:"devices"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// Source is what Load reads from. *apiclient.Client satisfies it.
type Source interface {
	transactionrepo.Repository
	userrepo.Repository
}

// MonthlyFlows buckets txs into the last months calendar months ending with now's month,
// oldest first. Transactions outside the window are ignored. Anything that is not a
// deposit counts as a withdrawal.
func MonthlyFlows(txs []transactiondomain.Transaction, now time.Time, months int) []MonthFlow {
	if months <= 0 {
		return nil
	}
	loc := now.Location()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -(months - 1), 0)

	flows := make([]MonthFlow, months)
	for i := range flows {
		d := start.AddDate(0, i, 0)
		flows[i] = MonthFlow{Year: d.Year(), Month: d.Month(), Label: d.Month().String()[:3]}
	}

	for _, tx := range txs {
		t := tx.CreatedAt.In(loc)
		i := (t.Year()-start.Year())*12 + int(t.Month()) - int(start.Month())
		if i < 0 || i >= months {
			continue
		}
		if tx.Type == transactiondomain.TypeDeposit {
			flows[i].Deposits += tx.Amount
		} else {
			flows[i].Withdrawals += tx.Amount
		}
	}
	return flows
}

// DeviceSplit counts verified customers on page; the rest of page.Total is unverified.
func DeviceSplit(page *userdomain.UsersPage) Split {
	if page == nil {
		return Split{}
	}
	verified := 0
	for _, u := range page.Users {
		if u.DeviceVerified {
			verified++
		}
	}
	unverified := page.Total - verified
	if unverified < 0 {
		unverified = 0
	}
	return Split{Verified: verified, Unverified: unverified, Total: page.Total}
}

// Load fetches the first FetchLimit transactions and customers in parallel and builds the report.
// The first failure cancels the other fetch and is returned.
func Load(ctx context.Context, src Source, now time.Time) (*Report, error) {
	var (
		txs   *transactiondomain.TransactionsPage
		users *userdomain.UsersPage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = src.Transactions(gctx, 1, FetchLimit, "")
		return err
	})
	g.Go(func() error {
		var err error
		users, err = src.Users(gctx, 1, FetchLimit, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{
		Flows:       MonthlyFlows(txs.Transactions, now, DefaultMonths),
		Devices:     DeviceSplit(users),
		GeneratedAt: now,
	}, nil
}
