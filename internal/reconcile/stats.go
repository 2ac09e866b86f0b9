package reconcile

import "github.com/covlang/scriptcov/internal/model"

// phaseStatisticsAndEmission is spec.md §4.G phases 6 and 7 combined: build
// every discovered file's FileReport, then the aggregate Summary.
func phaseStatisticsAndEmission(global *model.GlobalState, opts Options) *model.ReportData {
	var files []model.FileReport

	for _, sf := range global.Files() {
		if !sf.Tracking.Discovered {
			continue
		}

		if opts.IsTestFile != nil && opts.IsTestFile(sf.Path) {
			continue
		}

		files = append(files, buildFileReport(sf, opts))
	}

	return &model.ReportData{
		Files:   files,
		Summary: buildSummary(files, opts),
	}
}

func buildFileReport(sf *model.SourceFile, opts Options) model.FileReport {
	fr := model.FileReport{
		Path:          sf.Path,
		SourceText:    sf.Text,
		Discovered:    sf.Tracking.Discovered,
		AnalysisError: sf.AnalysisError,
	}

	lineCount := sf.LineCount
	if sf.Map != nil {
		fr.Partial = sf.Map.Partial
	}

	for line := 1; line <= lineCount; line++ {
		kind := model.NonExecutable
		executable := false

		if sf.Map != nil {
			kind = sf.Map.Lines[line]
			executable = sf.Map.IsExecutable(line)
		}

		executed := line < len(sf.Tracking.Executed) && sf.Tracking.Executed[line]
		covered := line < len(sf.Tracking.Covered) && sf.Tracking.Covered[line]

		fr.Lines = append(fr.Lines, model.LineReport{Line: line, Kind: kind, Executed: executed, Covered: covered})

		if executable {
			fr.TotalExecutableLines++

			if covered {
				fr.CoveredLines++
			} else if executed {
				fr.ExecutedNotCovered++
			}
		}
	}

	if sf.Map != nil {
		for _, fn := range sf.Map.Functions {
			st := sf.Tracking.FunctionEntry(fn.ID)
			fr.Functions = append(fr.Functions, model.FunctionReport{Function: fn, Executed: st.Executed, Calls: st.Calls})
			fr.TotalFunctions++

			if st.Executed {
				fr.ExecutedFunctions++
			}
		}

		for _, b := range sf.Map.Blocks {
			st := sf.Tracking.BlockEntry(b.ID)
			fr.Blocks = append(fr.Blocks, model.BlockReport{Block: b, Executed: st.Executed, Entries: st.Entries})
			fr.TotalBlocks++

			if st.Executed {
				fr.ExecutedBlocks++
			}
		}

		for _, c := range sf.Map.Conditions {
			st := sf.Tracking.ConditionEntry(c.ID)
			fr.Conditions = append(fr.Conditions, model.ConditionReport{
				Condition:     c,
				Executed:      st.Executed,
				ObservedTrue:  st.ObservedTrue,
				ObservedFalse: st.ObservedFalse,
				HitCount:      st.HitCount,
			})
		}
	}

	fr.LinePercent = percent(fr.CoveredLines, fr.TotalExecutableLines)
	fr.FunctionPercent = percent(fr.ExecutedFunctions, fr.TotalFunctions)
	fr.BlockPercent = percent(fr.ExecutedBlocks, fr.TotalBlocks)
	fr.OverallPercent = overallPercent(fr.LinePercent, fr.FunctionPercent, fr.BlockPercent, opts.TrackBlocks)

	return fr
}

func buildSummary(files []model.FileReport, opts Options) model.Summary {
	var s model.Summary

	s.TotalFiles = len(files)
	s.Threshold = opts.Threshold

	var lineSum, funcSum, blockSum float64

	for _, fr := range files {
		s.TotalExecutableLines += fr.TotalExecutableLines
		s.CoveredLines += fr.CoveredLines
		s.TotalFunctions += fr.TotalFunctions
		s.ExecutedFunctions += fr.ExecutedFunctions
		s.TotalBlocks += fr.TotalBlocks
		s.ExecutedBlocks += fr.ExecutedBlocks
	}

	lineSum = percent(s.CoveredLines, s.TotalExecutableLines)
	funcSum = percent(s.ExecutedFunctions, s.TotalFunctions)
	blockSum = percent(s.ExecutedBlocks, s.TotalBlocks)

	s.OverallPercent = overallPercent(lineSum, funcSum, blockSum, opts.TrackBlocks)
	s.PassesThreshold = s.OverallPercent >= float64(opts.Threshold)

	return s
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 0
	}

	return 100 * float64(covered) / float64(total)
}

func overallPercent(linePct, funcPct, blockPct float64, trackBlocks bool) float64 {
	if trackBlocks {
		return lineWeightWithBlocks*linePct + functionWeightWithBlocks*funcPct + blockWeightWithBlocks*blockPct
	}

	return lineWeightNoBlocks*linePct + functionWeightNoBlocks*funcPct
}
