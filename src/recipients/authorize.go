package recipients

import (
	"errors"

	"buildmail-agent/src/identity"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/provider"
)

// Policy holds the operator overrides for individual notification. Both
// default to false, which excludes the address and logs why.
type Policy struct {
	// SendToUnknownUsers includes culprits the identity store cannot impersonate.
	SendToUnknownUsers bool
	// SendToUsersWithoutRead includes culprits lacking read access to the build.
	SendToUsersWithoutRead bool
}

// Authorizer maps a build's culprits to the addresses allowed to hear about it.
type Authorizer struct {
	Identities identity.Store
	Policy     Policy
	// Verbose echoes every culprit's resolved address to the build log.
	Verbose bool
}

// AuthorizedAddresses returns the configured addresses of b's culprits that
// pass the authorization policy, in culprit order. Culprits without an
// address are logged and skipped.
func (a *Authorizer) AuthorizedAddresses(log logger.Logger, b provider.Build) []string {
	ids := a.Identities
	if ids == nil {
		ids = identity.Open{}
	}

	var out []string
	for _, user := range b.Culprits() {
		addr := ids.ConfiguredAddress(user)
		if a.Verbose {
			log.Info("  User %s -> %s", user.ID, addr)
		}
		if addr == "" {
			log.Info("Failed to send e-mail to %s because no e-mail address is configured for this user", user.DisplayName())
			continue
		}
		if ids.SecurityEnabled() && !a.allowed(log, ids, user, addr, b) {
			continue
		}
		out = append(out, addr)
	}
	return out
}

func (a *Authorizer) allowed(log logger.Logger, ids identity.Store, user provider.User, addr string, b provider.Build) bool {
	principal, err := ids.Impersonate(user)
	if err != nil {
		if !errors.Is(err, identity.ErrUnknownUser) {
			log.Error("Failed to check permissions of %s: %v", addr, err)
			return false
		}
		if a.Policy.SendToUnknownUsers {
			log.Info("WARNING: sending mail to %s, who is not a known user", addr)
			return true
		}
		log.Info("Not sending mail to unregistered user %s because the SCM associated the change with an unknown user ID", addr)
		return false
	}

	if ids.HasReadPermission(principal, b) {
		return true
	}
	if a.Policy.SendToUsersWithoutRead {
		log.Info("WARNING: sending mail to user %s with no permission to view %s", addr, b.FullDisplayName())
		return true
	}
	log.Info("Not sending mail to user %s with no permission to view %s", addr, b.FullDisplayName())
	return false
}
