package calculator

import (
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

// flowGraph views a group's unsettled debts as a capacity graph: every
// debt is a directed edge from the user who owes to the user owed, with
// the outstanding amount as capacity. The simplifier and transfer
// settlement both route over this graph, so a transfer the simplifier
// emits consumes exactly the capacity settlement will consume.
type flowGraph struct {
	debts    []*models.Debt
	residual map[string]money.Money    // remaining capacity by debt ID
	outgoing map[string][]*models.Debt // debts by owing user, oldest first
}

// newFlowGraph indexes the debts. The slice order is taken as oldest
// first; it decides which debts a route consumes on ties.
func newFlowGraph(debts []*models.Debt) *flowGraph {
	g := &flowGraph{
		debts:    debts,
		residual: make(map[string]money.Money, len(debts)),
		outgoing: make(map[string][]*models.Debt),
	}
	for _, d := range debts {
		g.residual[d.ID] = d.Amount
		g.outgoing[d.OwedByID] = append(g.outgoing[d.OwedByID], d)
	}
	return g
}

// balances folds the residual capacities into a net position per user:
// owed to them minus owed by them.
func (g *flowGraph) balances() map[string]money.Money {
	balances := make(map[string]money.Money)
	for _, d := range g.debts {
		amount := g.residual[d.ID]
		balances[d.OwedByID] = balances[d.OwedByID].Sub(amount)
		balances[d.OwedToID] = balances[d.OwedToID].Add(amount)
	}
	return balances
}

// findPath is a depth-first search over debts with residual capacity,
// visiting each user at most once. Debt order within a node is oldest
// first, which keeps routing deterministic.
func (g *flowGraph) findPath(from, to string) []*models.Debt {
	visited := map[string]bool{from: true}
	var dfs func(node string) []*models.Debt
	dfs = func(node string) []*models.Debt {
		for _, d := range g.outgoing[node] {
			if !g.residual[d.ID].IsPositive() || visited[d.OwedToID] {
				continue
			}
			if d.OwedToID == to {
				return []*models.Debt{d}
			}
			visited[d.OwedToID] = true
			if rest := dfs(d.OwedToID); rest != nil {
				return append([]*models.Debt{d}, rest...)
			}
		}
		return nil
	}
	return dfs(from)
}

// route pushes up to want from one user to another along residual
// paths, consuming capacity as it goes. It returns how much of each
// debt was consumed (keyed by debt ID) and the total realized, which
// falls short of want when the graph runs out of paths.
func (g *flowGraph) route(from, to string, want money.Money) (map[string]money.Money, money.Money) {
	consumed := make(map[string]money.Money)
	remaining := want
	for remaining.IsPositive() {
		path := g.findPath(from, to)
		if path == nil {
			break
		}
		push := remaining
		for _, d := range path {
			if g.residual[d.ID].Cmp(push) < 0 {
				push = g.residual[d.ID]
			}
		}
		for _, d := range path {
			g.residual[d.ID] = g.residual[d.ID].Sub(push)
			consumed[d.ID] = consumed[d.ID].Add(push)
		}
		remaining = remaining.Sub(push)
	}
	return consumed, want.Sub(remaining)
}

// RouteTransfer routes a transfer over the given unsettled debts and
// reports how much of each debt it would consume, keyed by debt ID.
// The realized total is capped by the graph's capacity between the two
// users; callers decide whether a partial route is acceptable.
func RouteTransfer(debts []*models.Debt, transfer models.Transfer) (map[string]money.Money, money.Money) {
	return newFlowGraph(debts).route(transfer.FromID, transfer.ToID, transfer.Amount)
}
