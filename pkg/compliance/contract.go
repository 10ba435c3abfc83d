package compliance

// ComplianceSmartContract locks each contract to a set of rule values.
type ComplianceSmartContract struct {
	rules map[string]Conditions
}

// ContractState is the serializable rule table.
type ContractState struct {
	Rules map[string]Conditions `json:"rules"`
}

func NewComplianceSmartContract() *ComplianceSmartContract {
	return &ComplianceSmartContract{rules: make(map[string]Conditions)}
}

// SetRule stores a copy of conditions for contractID, replacing any earlier rule.
func (c *ComplianceSmartContract) SetRule(contractID string, conditions Conditions) {
	c.rules[contractID] = conditions.clone()
}

// Check passes when a rule exists for contractID and every key in
// conditions equals the stored value. Keys absent from the stored rule
// compare as null; stored keys absent from conditions are not checked.
func (c *ComplianceSmartContract) Check(contractID string, conditions Conditions) bool {
	rule, ok := c.rules[contractID]
	if !ok {
		return false
	}
	for k, want := range conditions {
		got, ok := rule[k]
		if !ok {
			got = Null()
		}
		if !got.Equal(want) {
			return false
		}
	}
	return true
}

func (c *ComplianceSmartContract) Snapshot() ContractState {
	out := make(map[string]Conditions, len(c.rules))
	for id, rule := range c.rules {
		out[id] = rule.clone()
	}
	return ContractState{Rules: out}
}

func (c *ComplianceSmartContract) Restore(state ContractState) error {
	rules := make(map[string]Conditions, len(state.Rules))
	for id, rule := range state.Rules {
		rules[id] = rule.clone()
	}
	c.rules = rules
	return nil
}
