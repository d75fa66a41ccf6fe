// entities.go - Engine surface for the reference entities: goals, debts,
// accounts, categories, budgets, investments. Plain create/update/delete
// through the repositories, each followed by the usual full reload.
package ledger

import (
	"context"
	"time"
)

// GoalInput creates or updates a savings goal. CurrentAmount is not
// settable here: it only moves through contributions.
type GoalInput struct {
	Name         string
	TargetAmount string
	Deadline     time.Time
}

func (e *Engine) CreateGoal(ctx context.Context, in GoalInput) (Goal, error) {
	target, err := ParseAmount(in.TargetAmount)
	if err != nil {
		return Goal{}, err
	}
	if !target.IsPositive() {
		return Goal{}, &ValidationError{Field: "target_amount", Reason: "must be greater than zero"}
	}
	g, err := e.repos.InsertGoal(ctx, Goal{Name: in.Name, TargetAmount: target, Deadline: in.Deadline})
	if err != nil {
		return Goal{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordCreate(ctx, KindGoal, g.ID, "created goal "+g.Name)
	return g, e.Reload(ctx)
}

func (e *Engine) UpdateGoal(ctx context.Context, id string, in GoalInput) (Goal, error) {
	target, err := ParseAmount(in.TargetAmount)
	if err != nil {
		return Goal{}, err
	}
	release := e.guard.MarkMutating(id)
	defer release()

	g, err := e.repos.GetGoal(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	g.Name = in.Name
	g.TargetAmount = target
	g.Deadline = in.Deadline
	// Completion is re-derived against the possibly new target.
	if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.Status = GoalCompleted
	} else {
		g.Status = GoalInProgress
	}
	if err := e.repos.UpdateGoal(ctx, g); err != nil {
		return Goal{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordUpdate(ctx, KindGoal, id, "updated goal "+g.Name)
	return g, e.Reload(ctx)
}

// DeleteGoal removes the goal and trashes its contribution transactions so
// the ledger does not keep live rows pointing at a gone target.
func (e *Engine) DeleteGoal(ctx context.Context, id string) error {
	release := e.guard.MarkMutating(id)
	defer release()

	g, err := e.repos.GetGoal(ctx, id)
	if err != nil {
		return err
	}
	all, err := e.repos.AllTransactions(ctx)
	if err != nil {
		return e.fail(ctx, err)
	}
	var linked []string
	for _, t := range all {
		if t.GoalContributionID == id && !t.Deleted() {
			linked = append(linked, t.ID)
		}
	}
	if len(linked) > 0 {
		now := time.Now().UTC()
		if err := e.repos.PatchTransactions(ctx, linked, Row{"deleted_at": encodeTime(now)}); err != nil {
			return e.fail(ctx, err)
		}
	}
	if err := e.repos.DeleteGoal(ctx, id); err != nil {
		return e.fail(ctx, err)
	}
	_ = e.lifecycle.record(ctx, AuditDelete, KindGoal, id, "deleted goal "+g.Name)
	return e.Reload(ctx)
}

type DebtInput struct {
	Name         string
	TotalAmount  string
	InterestRate string
	Category     string
}

func (e *Engine) CreateDebt(ctx context.Context, in DebtInput) (Debt, error) {
	total, err := ParseAmount(in.TotalAmount)
	if err != nil {
		return Debt{}, err
	}
	if !total.IsPositive() {
		return Debt{}, &ValidationError{Field: "total_amount", Reason: "must be greater than zero"}
	}
	rate, err := ParseAmount(in.InterestRate)
	if err != nil {
		return Debt{}, err
	}
	d, err := e.repos.InsertDebt(ctx, Debt{
		Name:         in.Name,
		TotalAmount:  total,
		InterestRate: rate,
		Category:     in.Category,
	})
	if err != nil {
		return Debt{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordCreate(ctx, KindDebt, d.ID, "created debt "+d.Name)
	return d, e.Reload(ctx)
}

func (e *Engine) DeleteDebt(ctx context.Context, id string) error {
	release := e.guard.MarkMutating(id)
	defer release()

	d, err := e.repos.GetDebt(ctx, id)
	if err != nil {
		return err
	}
	if err := e.repos.DeleteDebt(ctx, id); err != nil {
		return e.fail(ctx, err)
	}
	_ = e.lifecycle.record(ctx, AuditDelete, KindDebt, id, "deleted debt "+d.Name)
	return e.Reload(ctx)
}

func (e *Engine) CreateAccount(ctx context.Context, name, accountType string) (Account, error) {
	if name == "" {
		return Account{}, &ValidationError{Field: "name", Reason: "required"}
	}
	a, err := e.repos.InsertAccount(ctx, Account{Name: name, Type: accountType})
	if err != nil {
		return Account{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordCreate(ctx, KindAccount, a.ID, "created account "+a.Name)
	return a, e.Reload(ctx)
}

func (e *Engine) CreateCategory(ctx context.Context, name string, catType TransactionType, icon string) (Category, error) {
	if name == "" {
		return Category{}, &ValidationError{Field: "name", Reason: "required"}
	}
	if catType != TypeIncome && catType != TypeExpense {
		return Category{}, &ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	c, err := e.repos.InsertCategory(ctx, Category{Name: name, Type: catType, Icon: icon})
	if err != nil {
		return Category{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordCreate(ctx, KindCategory, c.ID, "created category "+c.Name)
	return c, e.Reload(ctx)
}

func (e *Engine) CreateBudget(ctx context.Context, categoryID, monthlyLimit string) (Budget, error) {
	limit, err := ParseAmount(monthlyLimit)
	if err != nil {
		return Budget{}, err
	}
	b, err := e.repos.InsertBudget(ctx, Budget{CategoryID: categoryID, MonthlyLimit: limit})
	if err != nil {
		return Budget{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordCreate(ctx, KindBudget, b.ID, "created budget")
	return b, e.Reload(ctx)
}

type InvestmentInput struct {
	Name           string
	InvestedAmount string
	CurrentValue   string
}

func (e *Engine) CreateInvestment(ctx context.Context, in InvestmentInput) (Investment, error) {
	invested, err := ParseAmount(in.InvestedAmount)
	if err != nil {
		return Investment{}, err
	}
	current, err := ParseAmount(in.CurrentValue)
	if err != nil {
		return Investment{}, err
	}
	inv, err := e.repos.InsertInvestment(ctx, Investment{
		Name:           in.Name,
		InvestedAmount: invested,
		CurrentValue:   current,
	})
	if err != nil {
		return Investment{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordCreate(ctx, KindInvestment, inv.ID, "created investment "+inv.Name)
	return inv, e.Reload(ctx)
}

// AuditEntries lists the audit trail for the user.
func (e *Engine) AuditEntries(ctx context.Context) ([]AuditEntry, error) {
	return e.repos.AuditEntries(ctx)
}
