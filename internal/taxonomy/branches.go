package taxonomy

import "strings"

// The canonical branch set. Payer sheets spell branch names a dozen ways;
// everything resolves to one of these or is preserved verbatim and flagged.
const (
	BranchRiyadh  = "Riyadh"
	BranchJeddah  = "Jeddah"
	BranchDammam  = "Dammam"
	BranchAbha    = "Abha"
	BranchMadinah = "Madinah"
	BranchTabuk   = "Tabuk"
)

// BranchUnassigned stands in when a sheet carries no branch at all, neither
// per row nor sheet-wide. Such records are flagged for manual assignment.
const BranchUnassigned = "unassigned"

// branchAliases maps lowercased payer spellings to canonical branch names.
var branchAliases = map[string]string{
	"riyadh":         BranchRiyadh,
	"riyadh main":    BranchRiyadh,
	"ryd":            BranchRiyadh,
	"riyadh-01":      BranchRiyadh,
	"jeddah":         BranchJeddah,
	"jed":            BranchJeddah,
	"jeddah branch":  BranchJeddah,
	"dammam":         BranchDammam,
	"dmm":            BranchDammam,
	"eastern-dammam": BranchDammam,
	"abha":           BranchAbha,
	"abha-01":        BranchAbha,
	"aseer abha":     BranchAbha,
	"madinah":        BranchMadinah,
	"medina":         BranchMadinah,
	"med":            BranchMadinah,
	"tabuk":          BranchTabuk,
	"tbk":            BranchTabuk,
}

// CanonicalBranch resolves a payer-reported branch name to the canonical set.
// Unknown names are returned trimmed but otherwise verbatim with ok=false;
// they are flagged downstream, never dropped. A missing name resolves to
// BranchUnassigned, also with ok=false.
func CanonicalBranch(name string) (branch string, ok bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return BranchUnassigned, false
	}
	if canonical, found := branchAliases[strings.ToLower(trimmed)]; found {
		return canonical, true
	}
	return trimmed, false
}

// Branches returns the canonical branch set in a stable order.
func Branches() []string {
	return []string{
		BranchRiyadh, BranchJeddah, BranchDammam,
		BranchAbha, BranchMadinah, BranchTabuk,
	}
}
