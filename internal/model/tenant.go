package model

// TenantRow is one entry of the tenant ledger. The set is built once by
// scanning the ledger at startup and is immutable for the rest of the run.
type TenantRow struct {
	Owner    string // column A: owner name, the matching key
	Occupant string // column B: occupant, only consulted for authority payers
	Property string // column C: property label
	Row      int    // 1-based sheet row resolved from the owner-name column scan
}
