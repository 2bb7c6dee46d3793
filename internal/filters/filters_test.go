package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashplan/internal/models"
	"cashplan/internal/testutil"
)

func TestPlannedItemsScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	rent := testutil.CreateTestCategory(t, db, models.FlowPayment)
	sales := testutil.CreateTestCategory(t, db, models.FlowIncome)

	a := testutil.CreateTestPlannedItem(t, db, rent, "100", testutil.Date(2025, 10, 1), models.PlannedItemPlanned)
	b := testutil.CreateTestPlannedItem(t, db, rent, "200", testutil.Date(2025, 10, 31), models.PlannedItemCancelled)
	c := testutil.CreateTestPlannedItem(t, db, sales, "300", testutil.Date(2025, 11, 1), models.PlannedItemPaid)

	find := func(f PlannedItems) []string {
		t.Helper()
		var got []models.PlannedItem
		require.NoError(t, db.Scopes(f.Scope()).Order("planned_date").Find(&got).Error)
		out := make([]string, 0, len(got))
		for _, it := range got {
			out = append(out, it.ID)
		}
		return out
	}

	from := testutil.Date(2025, 10, 1)
	to := testutil.Date(2025, 10, 31)

	assert.Equal(t, []string{a.ID, b.ID, c.ID}, find(PlannedItems{}))
	assert.Equal(t, []string{a.ID, b.ID}, find(PlannedItems{DateFrom: &from, DateTo: &to}), "range bounds are inclusive")
	assert.Equal(t, []string{a.ID, c.ID}, find(PlannedItems{ExcludeStates: []models.PlannedItemState{models.PlannedItemCancelled}}))
	assert.Equal(t, []string{c.ID}, find(PlannedItems{Types: []models.FlowType{models.FlowIncome}}))
	assert.Equal(t, []string{a.ID}, find(PlannedItems{
		CategoryIDs: []string{rent.ID},
		States:      []models.PlannedItemState{models.PlannedItemPlanned},
	}))
	assert.Equal(t, []string{b.ID}, find(PlannedItems{Description: b.Description}))
}

func TestBudgetsScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	rent := testutil.CreateTestCategory(t, db, models.FlowPayment)
	travel := testutil.CreateTestCategory(t, db, models.FlowPayment)

	oct := testutil.CreateTestBudget(t, db, rent.ID, "1000", testutil.Date(2025, 10, 1), testutil.Date(2025, 10, 31))
	nov := testutil.CreateTestBudget(t, db, rent.ID, "1000", testutil.Date(2025, 11, 1), testutil.Date(2025, 11, 30))
	trip := testutil.CreateTestBudget(t, db, travel.ID, "500", testutil.Date(2025, 10, 15), testutil.Date(2025, 11, 15))

	find := func(f Budgets) []string {
		t.Helper()
		var got []models.Budget
		require.NoError(t, db.Scopes(f.Scope()).Order("period_start, name").Find(&got).Error)
		out := make([]string, 0, len(got))
		for _, b := range got {
			out = append(out, b.ID)
		}
		return out
	}

	t.Run("overlap", func(t *testing.T) {
		from := testutil.Date(2025, 10, 31)
		to := testutil.Date(2025, 10, 31)
		assert.Equal(t, []string{oct.ID, trip.ID}, find(Budgets{OverlapFrom: &from, OverlapTo: &to}))
	})

	t.Run("covering_single_pair", func(t *testing.T) {
		got := find(Budgets{Covering: []Coverage{{CategoryID: rent.ID, Date: testutil.Date(2025, 11, 1)}}})
		assert.Equal(t, []string{nov.ID}, got)
	})

	t.Run("covering_is_or_of_pairs", func(t *testing.T) {
		got := find(Budgets{Covering: []Coverage{
			{CategoryID: rent.ID, Date: testutil.Date(2025, 10, 31)},
			{CategoryID: travel.ID, Date: testutil.Date(2025, 11, 15)},
		}})
		assert.Equal(t, []string{oct.ID, trip.ID}, got)
	})

	t.Run("empty_covering_matches_nothing", func(t *testing.T) {
		assert.Empty(t, find(Budgets{Covering: []Coverage{}}))
	})

	t.Run("state_and_category", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Budget{}).Where("id = ?", nov.ID).Update("state", models.BudgetDraft).Error)
		got := find(Budgets{CategoryIDs: []string{rent.ID}, States: []models.BudgetState{models.BudgetConfirmed}})
		assert.Equal(t, []string{oct.ID}, got)
	})
}

func TestRecurringItemsScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	cat := testutil.CreateTestCategory(t, db, models.FlowPayment)
	active := testutil.CreateTestRecurringItem(t, db, cat, testutil.Date(2025, 1, 1))
	manual := testutil.CreateTestRecurringItem(t, db, cat, testutil.Date(2025, 1, 1))
	require.NoError(t, db.Model(manual).Update("auto_generate", false).Error)
	suspended := testutil.CreateTestRecurringItem(t, db, cat, testutil.Date(2025, 1, 1))
	require.NoError(t, db.Model(suspended).Update("state", models.RecurringSuspended).Error)

	auto := true
	var got []models.RecurringItem
	require.NoError(t, db.Scopes(RecurringItems{
		States:       []models.RecurringState{models.RecurringActive},
		AutoGenerate: &auto,
	}.Scope()).Find(&got).Error)

	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)
}
