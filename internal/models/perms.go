package models

import (
	"fmt"
	"sort"
)

type Perm string
type Perms map[Perm]struct{}

func NewPerms(perms ...Perm) Perms {
	ps := Perms{}
	for _, p := range perms {
		ps[p] = struct{}{}
	}
	return ps
}

const (
	PermCreatePost         Perm = "create_post"
	PermCreateReview       Perm = "create_review"
	PermCreateReaction     Perm = "create_reaction"
	PermApplyForLevel      Perm = "apply_for_level"
	PermResolveApplication Perm = "resolve_application"
	PermSuspendReviewer    Perm = "suspend_reviewer"
	PermDemoteReviewer     Perm = "demote_reviewer"
	PermRecomputeConsensus Perm = "recompute_consensus"
)

var PermsCommon = NewPerms(
	PermCreatePost,
	PermCreateReview,
	PermCreateReaction,
	PermApplyForLevel,
)

var PermsModerator = PermsCommon.Union(NewPerms(
	PermResolveApplication,
	PermSuspendReviewer,
	PermRecomputeConsensus,
))

var PermsAdmin = PermsModerator.Union(NewPerms(
	PermDemoteReviewer,
))

func PermsForRole(role UserRole) Perms {
	switch role {
	case RoleAdmin:
		return PermsAdmin
	case RoleModerator:
		return PermsModerator
	}
	return PermsCommon
}

type ErrMissingPerms struct {
	Perms []Perm
}

func (mp ErrMissingPerms) Error() string {
	return fmt.Sprintf("missing permission %s", mp.Perms)
}

func (mp ErrMissingPerms) Unwrap() error {
	return ErrPermDenied
}

func (ps Perms) Require(reqPerms ...Perm) error {
	missing := []Perm{}
	for _, p := range reqPerms {
		if _, ok := ps[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return ErrMissingPerms{missing}
	}
	return nil
}

func (ps Perms) Check(reqPerms ...Perm) bool {
	return ps.Require(reqPerms...) == nil
}

func (ps Perms) List() []Perm {
	perms := []Perm{}
	for k := range ps {
		perms = append(perms, k)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

func (ps Perms) SubsetOf(ps2 Perms) bool {
	for p := range ps {
		if _, ok := ps2[p]; !ok {
			return false
		}
	}
	return true
}

func (ps Perms) Union(ps2 Perms) Perms {
	res := Perms{}
	for p := range ps {
		res[p] = struct{}{}
	}
	for p := range ps2 {
		res[p] = struct{}{}
	}
	return res
}
