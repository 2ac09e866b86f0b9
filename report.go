package scriptcov

import "github.com/covlang/scriptcov/internal/model"

// ReportData, FileReport and Summary are the public shape the Reconciler
// emits (spec.md §4.G phase 7 / §6's report renderer collaborator
// interface); aliased from internal/model so the internal packages and the
// public API share one definition.
type (
	ReportData = model.ReportData
	FileReport = model.FileReport
	Summary    = model.Summary
)
