package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPurchaseCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	cat := mustCategory(t, st, "Groceries", nil)
	created, err := st.CreatePurchase(ctx, Purchase{
		Name:         "Weekly shop",
		AmountCents:  4250,
		Currency:     "USD",
		PurchaseDate: "2026-08-14",
		Vendor:       strp("Aldi"),
		CategoryID:   &cat.ID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := st.GetPurchase(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Weekly shop", got.Name)
	require.Equal(t, int64(4250), got.AmountCents)
	require.Equal(t, "Aldi", *got.Vendor)
	require.Equal(t, cat.ID, *got.CategoryID)

	got.Name = "Weekly groceries"
	got.AmountCents = 4300
	require.NoError(t, st.UpdatePurchase(ctx, got))
	got, err = st.GetPurchase(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Weekly groceries", got.Name)
	require.Equal(t, int64(4300), got.AmountCents)

	require.NoError(t, st.DeletePurchase(ctx, created.ID))
	_, err = st.GetPurchase(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, st.DeletePurchase(ctx, created.ID), ErrNotFound)
}

func TestPurchaseValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	cases := []struct {
		name  string
		p     Purchase
		field string
	}{
		{"empty name", Purchase{Name: "", AmountCents: 100, Currency: "USD", PurchaseDate: "2026-01-02"}, "name"},
		{"negative amount", Purchase{Name: "x", AmountCents: -5, Currency: "USD", PurchaseDate: "2026-01-02"}, "amountCents"},
		{"bad currency", Purchase{Name: "x", AmountCents: 100, Currency: "DOLLARS", PurchaseDate: "2026-01-02"}, "currency"},
		{"bad date", Purchase{Name: "x", AmountCents: 100, Currency: "USD", PurchaseDate: "02/01/2026"}, "purchaseDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := st.CreatePurchase(ctx, tc.p)
			require.True(t, IsValidation(err), "want validation error, got %v", err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tc.field, ve.Field)
		})
	}

	page, err := st.ListPurchases(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, 0, page.Total, "rejected purchases must not be stored")
}

func TestTagFilterRequiresAllTags(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	work := mustTag(t, st, "work")
	travel := mustTag(t, st, "travel")

	onlyWork := mustPurchase(t, st, "Laptop stand", "2026-03-01", 3900, nil)
	onlyTravel := mustPurchase(t, st, "Train ticket", "2026-03-02", 2400, nil)
	both := mustPurchase(t, st, "Conference hotel", "2026-03-03", 18900, nil)

	require.NoError(t, st.SetPurchaseTags(ctx, onlyWork.ID, []string{work.ID}))
	require.NoError(t, st.SetPurchaseTags(ctx, onlyTravel.ID, []string{travel.ID}))
	require.NoError(t, st.SetPurchaseTags(ctx, both.ID, []string{work.ID, travel.ID}))

	page, err := st.ListPurchases(ctx, Filter{TagIDs: []string{work.ID, travel.ID}})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, both.ID, page.Items[0].ID)

	page, err = st.ListPurchases(ctx, Filter{TagIDs: []string{work.ID}})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	ids := []string{page.Items[0].ID, page.Items[1].ID}
	require.ElementsMatch(t, []string{onlyWork.ID, both.ID}, ids)

	// A repeated id asks for the same tag twice, not an impossible count.
	page, err = st.ListPurchases(ctx, Filter{TagIDs: []string{work.ID, work.ID}})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
}

func TestSetPurchaseTagsReplacesLinkSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	a := mustTag(t, st, "a")
	b := mustTag(t, st, "b")
	p := mustPurchase(t, st, "Coffee", "2026-04-01", 450, nil)

	require.NoError(t, st.SetPurchaseTags(ctx, p.ID, []string{a.ID}))
	require.NoError(t, st.SetPurchaseTags(ctx, p.ID, []string{b.ID}))

	got, err := st.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	require.Equal(t, "b", got.Tags[0].Name)

	require.ErrorIs(t, st.SetPurchaseTags(ctx, "missing", []string{a.ID}), ErrNotFound)
}

func TestListPurchasesPaging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	dates := []string{"2026-05-01", "2026-05-02", "2026-05-03", "2026-05-04", "2026-05-05"}
	for i, d := range dates {
		mustPurchase(t, st, "Item", d, int64(100*(i+1)), nil)
	}

	page, err := st.ListPurchases(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	// Newest first.
	require.Equal(t, "2026-05-05", page.Items[0].PurchaseDate)
	require.Equal(t, "2026-05-04", page.Items[1].PurchaseDate)

	page, err = st.ListPurchases(ctx, Filter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 1)
	require.Equal(t, "2026-05-01", page.Items[0].PurchaseDate)
}

func TestListPurchasesTextSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	mustPurchase(t, st, "Espresso machine", "2026-06-01", 24900, nil)
	p2, err := st.CreatePurchase(ctx, Purchase{
		Name: "Beans", AmountCents: 1200, Currency: "USD", PurchaseDate: "2026-06-02",
		Vendor: strp("Espresso House"),
	})
	require.NoError(t, err)
	mustPurchase(t, st, "Milk", "2026-06-03", 300, nil)

	page, err := st.ListPurchases(ctx, Filter{Query: strp("espresso")})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	page, err = st.ListPurchases(ctx, Filter{Query: strp("Espresso House")})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, p2.ID, page.Items[0].ID)
}

func TestListVendorsDistinctSorted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	for _, v := range []string{"Zara", "Aldi", "Aldi"} {
		_, err := st.CreatePurchase(ctx, Purchase{
			Name: "x", AmountCents: 100, Currency: "USD", PurchaseDate: "2026-01-10", Vendor: strp(v),
		})
		require.NoError(t, err)
	}
	mustPurchase(t, st, "no vendor", "2026-01-11", 100, nil)

	vendors, err := st.ListVendors(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Aldi", "Zara"}, vendors)
}
