package tenancy

import memberdomain "b2b-tenancy/internal/membership/domain"

// Action names an operation on an organization's resources.
type Action string

const (
	ActionOrgRead           Action = "organization.read"
	ActionOrgUpdate         Action = "organization.update"
	ActionOrgSettingsRead   Action = "organization.settings.read"
	ActionOrgSettingsUpdate Action = "organization.settings.update"
	ActionOrgDelete         Action = "organization.delete"

	ActionMemberList      Action = "membership.list"
	ActionMemberRead      Action = "membership.read"
	ActionMemberUpdate    Action = "membership.update"
	ActionMemberSetRole   Action = "membership.set_role"
	ActionMemberSetStatus Action = "membership.set_status"
	ActionMemberRemove    Action = "membership.remove"
	ActionMemberLeave     Action = "membership.leave"
	ActionOwnershipXfer   Action = "ownership.transfer"

	ActionTeamList         Action = "team.list"
	ActionTeamRead         Action = "team.read"
	ActionTeamCreate       Action = "team.create"
	ActionTeamUpdate       Action = "team.update"
	ActionTeamDelete       Action = "team.delete"
	ActionTeamMemberAdd    Action = "team.member.add"
	ActionTeamMemberRemove Action = "team.member.remove"

	ActionInvitationCreate Action = "invitation.create"
	ActionInvitationList   Action = "invitation.list"
	ActionInvitationRead   Action = "invitation.read"
	ActionInvitationCancel Action = "invitation.cancel"
	ActionInvitationResend Action = "invitation.resend"

	ActionAuditList   Action = "audit.list"
	ActionPolicyRead  Action = "policy.read"
	ActionPolicyWrite Action = "policy.write"
)

// minRoles is the fixed action table. Entries at viewer leave the finer
// decision (self-service versus acting on others) to the ledger.
var minRoles = map[Action]memberdomain.Role{
	ActionOrgRead:           memberdomain.RoleViewer,
	ActionOrgUpdate:         memberdomain.RoleAdmin,
	ActionOrgSettingsRead:   memberdomain.RoleAdmin,
	ActionOrgSettingsUpdate: memberdomain.RoleAdmin,
	ActionOrgDelete:         memberdomain.RoleOwner,

	ActionMemberList:      memberdomain.RoleViewer,
	ActionMemberRead:      memberdomain.RoleViewer,
	ActionMemberUpdate:    memberdomain.RoleViewer,
	ActionMemberSetRole:   memberdomain.RoleAdmin,
	ActionMemberSetStatus: memberdomain.RoleAdmin,
	ActionMemberRemove:    memberdomain.RoleViewer,
	ActionMemberLeave:     memberdomain.RoleViewer,
	ActionOwnershipXfer:   memberdomain.RoleOwner,

	ActionTeamList:         memberdomain.RoleMember,
	ActionTeamRead:         memberdomain.RoleMember,
	ActionTeamCreate:       memberdomain.RoleAdmin,
	ActionTeamUpdate:       memberdomain.RoleAdmin,
	ActionTeamDelete:       memberdomain.RoleAdmin,
	ActionTeamMemberAdd:    memberdomain.RoleAdmin,
	ActionTeamMemberRemove: memberdomain.RoleAdmin,

	ActionInvitationCreate: memberdomain.RoleAdmin,
	ActionInvitationList:   memberdomain.RoleAdmin,
	ActionInvitationRead:   memberdomain.RoleAdmin,
	ActionInvitationCancel: memberdomain.RoleAdmin,
	ActionInvitationResend: memberdomain.RoleAdmin,

	ActionAuditList:   memberdomain.RoleAdmin,
	ActionPolicyRead:  memberdomain.RoleAdmin,
	ActionPolicyWrite: memberdomain.RoleAdmin,
}

// MinRole returns the minimum role action requires.
func MinRole(a Action) (memberdomain.Role, bool) {
	r, ok := minRoles[a]
	return r, ok
}
