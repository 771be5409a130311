package auditlog

// Event IDs are persisted. Append new events; never renumber or reuse an ID.
func defaultEvents() []Event {
	return []Event{
		{ID: 1, Name: "MEMBER_INVITE", APIName: "member.invite", render: tmpl("invited member {email}")},
		{ID: 2, Name: "MEMBER_ADD", APIName: "member.add", render: tmpl("added member {email}")},
		{ID: 3, Name: "MEMBER_ACCEPT", APIName: "member.accept-invite", render: fixed("accepted the membership invite")},
		{ID: 4, Name: "MEMBER_EDIT", APIName: "member.edit", render: tmpl("edited member {email} (role: {role}, teams: {team_slugs})")},
		{ID: 5, Name: "MEMBER_REMOVE", APIName: "member.remove", render: tmpl("removed member {email}")},
		{ID: 6, Name: "MEMBER_JOIN_TEAM", APIName: "member.join-team", render: bySelf("joined team {team_slug}", "added {email} to team {team_slug}")},
		{ID: 7, Name: "MEMBER_LEAVE_TEAM", APIName: "member.leave-team", render: bySelf("left team {team_slug}", "removed {email} from team {team_slug}")},
		{ID: 8, Name: "MEMBER_PENDING", APIName: "member.pending", render: tmpl("required member {email} to setup 2FA")},

		{ID: 10, Name: "ORG_ADD", APIName: "org.create", render: fixed("created the organization")},
		{ID: 11, Name: "ORG_EDIT", APIName: "org.edit", render: renderOrgEdit},
		{ID: 12, Name: "ORG_REMOVE", APIName: "org.remove", render: fixed("removed the organization")},
		{ID: 13, Name: "ORG_RESTORE", APIName: "org.restore", render: fixed("restored the organization")},

		{ID: 20, Name: "TEAM_ADD", APIName: "team.create", render: tmpl("created team {slug}")},
		{ID: 21, Name: "TEAM_EDIT", APIName: "team.edit", render: tmpl("edited team {slug}")},
		{ID: 22, Name: "TEAM_REMOVE", APIName: "team.remove", render: tmpl("removed team {slug}")},

		{ID: 30, Name: "PROJECT_ADD", APIName: "project.create", render: tmpl("created project {slug}")},
		{ID: 31, Name: "PROJECT_EDIT", APIName: "project.edit", render: renderProjectEdit},
		{ID: 32, Name: "PROJECT_REMOVE", APIName: "project.remove", render: tmpl("removed project {slug}")},
		{ID: 33, Name: "PROJECT_SET_PUBLIC", APIName: "project.set-public", render: tmpl("made project {slug} public")},
		{ID: 34, Name: "PROJECT_SET_PRIVATE", APIName: "project.set-private", render: tmpl("made project {slug} private")},
		{ID: 35, Name: "PROJECT_REQUEST_TRANSFER", APIName: "project.request-transfer", render: tmpl("requested to transfer project {slug}")},
		{ID: 36, Name: "PROJECT_ACCEPT_TRANSFER", APIName: "project.accept-transfer", render: tmpl("accepted transfer of project {slug}")},
		{ID: 37, Name: "PROJECT_ENABLE", APIName: "project.enable", render: tmpl("enabled project filter {state}")},
		{ID: 38, Name: "PROJECT_DISABLE", APIName: "project.disable", render: tmpl("disabled project filter {state}")},

		{ID: 40, Name: "TAGKEY_REMOVE", APIName: "tagkey.remove", render: tmpl("removed tags matching {key} = *")},

		{ID: 50, Name: "PROJECTKEY_ADD", APIName: "projectkey.create", render: tmpl("added project key {public_key}")},
		{ID: 51, Name: "PROJECTKEY_EDIT", APIName: "projectkey.edit", render: tmpl("edited project key {public_key}")},
		{ID: 52, Name: "PROJECTKEY_REMOVE", APIName: "projectkey.remove", render: tmpl("removed project key {public_key}")},
		{ID: 53, Name: "PROJECTKEY_ENABLE", APIName: "projectkey.enable", render: tmpl("enabled project key {public_key}")},
		{ID: 54, Name: "PROJECTKEY_DISABLE", APIName: "projectkey.disable", render: tmpl("disabled project key {public_key}")},

		{ID: 60, Name: "SSO_ENABLE", APIName: "sso.enable", render: tmpl("enabled sso ({provider})")},
		{ID: 61, Name: "SSO_DISABLE", APIName: "sso.disable", render: tmpl("disabled sso ({provider})")},
		{ID: 62, Name: "SSO_EDIT", APIName: "sso.edit", render: tmpl("edited sso settings ({provider})")},
		{ID: 63, Name: "SSO_IDENTITY_LINK", APIName: "sso-identity.link", render: fixed("linked their account to a new identity")},

		{ID: 70, Name: "APIKEY_ADD", APIName: "api-key.create", render: tmpl("added api key {label}")},
		{ID: 71, Name: "APIKEY_EDIT", APIName: "api-key.edit", render: tmpl("edited api key {label}")},
		{ID: 72, Name: "APIKEY_REMOVE", APIName: "api-key.remove", render: tmpl("removed api key {label}")},

		{ID: 80, Name: "RULE_ADD", APIName: "rule.create", render: tmpl(`added rule "{label}"`)},
		{ID: 81, Name: "RULE_EDIT", APIName: "rule.edit", render: tmpl(`edited rule "{label}"`)},
		{ID: 82, Name: "RULE_REMOVE", APIName: "rule.remove", render: tmpl(`removed rule "{label}"`)},

		{ID: 100, Name: "SERVICEHOOK_ADD", APIName: "servicehook.create", render: tmpl(`added a service hook for "{url}"`)},
		{ID: 101, Name: "SERVICEHOOK_EDIT", APIName: "servicehook.edit", render: tmpl(`edited the service hook for "{url}"`)},
		{ID: 102, Name: "SERVICEHOOK_REMOVE", APIName: "servicehook.remove", render: tmpl(`removed the service hook for "{url}"`)},

		{ID: 110, Name: "INTEGRATION_ADD", APIName: "integration.add", render: byProvider(
			"installed {provider} for the {name} integration",
			"enabled integration {integration} for project {project}")},
		{ID: 111, Name: "INTEGRATION_EDIT", APIName: "integration.edit", render: byProvider(
			"edited the {name} for the {provider} integration",
			"edited integration {integration} for project {project}")},
		{ID: 112, Name: "INTEGRATION_REMOVE", APIName: "integration.remove", render: byProvider(
			"uninstalled {provider}: {name}",
			"disabled integration {integration} from project {project}")},

		{ID: 113, Name: "SENTRY_APP_ADD", APIName: "sentry-app.add", render: tmpl("created sentry app {sentry_app}")},
		{ID: 115, Name: "SENTRY_APP_REMOVE", APIName: "sentry-app.remove", render: tmpl("removed sentry app {sentry_app}")},
		{ID: 116, Name: "SENTRY_APP_INSTALL", APIName: "sentry-app.install", render: tmpl("installed sentry app {sentry_app}")},
		{ID: 117, Name: "SENTRY_APP_UNINSTALL", APIName: "sentry-app.uninstall", render: tmpl("uninstalled sentry app {sentry_app}")},

		{ID: 130, Name: "INTERNAL_INTEGRATION_ADD", APIName: "internal-integration.create", render: tmpl("created internal integration {name}")},
		{ID: 135, Name: "INTERNAL_INTEGRATION_ADD_TOKEN", APIName: "internal-integration.add-token", render: tmpl("created a token for internal integration {sentry_app}")},
		{ID: 136, Name: "INTERNAL_INTEGRATION_REMOVE_TOKEN", APIName: "internal-integration.remove-token", render: tmpl("revoked a token for internal integration {sentry_app}")},

		{ID: 150, Name: "INVITE_REQUEST_ADD", APIName: "invite-request.create", render: tmpl("request added to invite {email}")},
		{ID: 151, Name: "INVITE_REQUEST_REMOVE", APIName: "invite-request.remove", render: tmpl("removed the invite request for {email}")},

		{ID: 160, Name: "ALERT_RULE_ADD", APIName: "alertrule.create", render: tmpl(`added metric alert rule "{name}"`)},
		{ID: 161, Name: "ALERT_RULE_EDIT", APIName: "alertrule.edit", render: tmpl(`edited metric alert rule "{name}"`)},
		{ID: 162, Name: "ALERT_RULE_REMOVE", APIName: "alertrule.remove", render: tmpl(`removed metric alert rule "{name}"`)},
	}
}
