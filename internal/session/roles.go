package session

import "github.com/aussiebroadwan/praxis/pkg/authsdk"

// OnboardingRoute is where users who must finish onboarding or change their
// password are sent, ahead of any two-factor requirement.
const OnboardingRoute = "/onboarding"

var dashboardRoutes = map[authsdk.Role]string{
	authsdk.RoleAdmin:      "/admin/dashboard",
	authsdk.RoleTherapist:  "/therapist/dashboard",
	authsdk.RoleSubstitute: "/therapist/dashboard",
	authsdk.RoleClient:     "/client/dashboard",
	authsdk.RoleAssistant:  "/assistant/dashboard",
	authsdk.RoleBookkeeper: "/bookkeeper/dashboard",
}

// RouteForRole maps a role to its dashboard. Unknown roles get the client
// dashboard.
func RouteForRole(role authsdk.Role) string {
	if route, ok := dashboardRoutes[role]; ok {
		return route
	}
	return dashboardRoutes[authsdk.RoleClient]
}

var mandatoryTwoFactor = map[authsdk.Role]bool{
	authsdk.RoleAdmin:      true,
	authsdk.RoleTherapist:  true,
	authsdk.RoleBookkeeper: true,
	authsdk.RoleAssistant:  true,
	authsdk.RoleSubstitute: true,
}

// MandatoryTwoFactor reports whether accounts with role must register a
// second factor before reaching their dashboard.
func MandatoryTwoFactor(role authsdk.Role) bool {
	return mandatoryTwoFactor[role]
}

func routeFor(u *authsdk.User) string {
	if u == nil {
		return RouteForRole("")
	}
	return RouteForRole(u.Role)
}
