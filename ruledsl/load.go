package ruledsl

// Load parses a rule-file source into a DB (§4.2.1-§4.2.2). hotRules names
// the rule indices that should be installed into the cache table ahead of
// the general table; pass nil to treat every rule as a general rule.
//
// A malformed record (bad header, a section header outside any record, an
// instruction line before any .Guest:) is fatal and aborts the whole load,
// returning a non-nil error immediately. A rule with an unknown mnemonic,
// unknown register, or other per-rule defect is skipped and recorded in the
// returned ErrorList; every other rule in the file still loads (§4.2.3).
func Load(input, filename string, hotRules HotRuleIDs) (*DB, *ErrorList, error) {
	errs := &ErrorList{}
	rules, err := parseFile(input, filename, errs)
	if err != nil {
		return nil, errs, err
	}

	state := newBuildState()
	for _, r := range rules {
		state.Install(r, hotRules)
	}
	return state.Finalize(), errs, nil
}
