// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"strings"

	"bookcatalog/internal/nestedset"
)

// shiftStatement renders a plan as a single UPDATE. Both key columns are
// rewritten from their pre-update values, so the shifts apply at the same
// time and transient duplicates are left to the deferred unique constraints.
func shiftStatement(plan nestedset.Plan) (string, []any) {
	args := make([]any, 0, 3*len(plan)+2)
	for _, sh := range plan {
		args = append(args, sh.Low, sh.High, sh.Delta)
	}

	caseExpr := func(col string) string {
		var b strings.Builder
		b.WriteString("CASE")
		for i := range plan {
			n := 3*i + 1
			fmt.Fprintf(&b, " WHEN %s BETWEEN $%d AND $%d THEN %s + $%d::integer", col, n, n+1, col, n+2)
		}
		fmt.Fprintf(&b, " ELSE %s END", col)
		return b.String()
	}

	low, high := plan.Bounds()
	n := len(args) + 1
	args = append(args, low, high)

	sql := fmt.Sprintf(
		"UPDATE categories SET left_key = %s, right_key = %s WHERE left_key BETWEEN $%d AND $%d OR right_key BETWEEN $%d AND $%d",
		caseExpr("left_key"), caseExpr("right_key"), n, n+1, n, n+1,
	)
	return sql, args
}

// applyPlan executes plan against the categories table. Empty plans issue
// no statement.
func applyPlan(ctx context.Context, q Querier, plan nestedset.Plan) error {
	plan = plan.Compact()
	if len(plan) == 0 {
		return nil
	}
	sql, args := shiftStatement(plan)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return storageErr("shift keys", err)
	}
	return nil
}
