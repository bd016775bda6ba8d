package enums

import "fmt"

// ActorRole is the part an actor plays relative to a specific order.
type ActorRole string

const (
	ActorRoleBuyer   ActorRole = "buyer"
	ActorRoleSeller  ActorRole = "seller"
	ActorRoleSupport ActorRole = "support"
	ActorRoleSystem  ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleBuyer,
	ActorRoleSeller,
	ActorRoleSupport,
	ActorRoleSystem,
}

// String implements fmt.Stringer.
func (a ActorRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorRole.
func (a ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// SenderType maps the actor role to the sender recorded on ticket messages.
func (a ActorRole) SenderType() SenderType {
	switch a {
	case ActorRoleBuyer:
		return SenderTypeBuyer
	case ActorRoleSeller:
		return SenderTypeSeller
	case ActorRoleSupport:
		return SenderTypeSupport
	case ActorRoleSystem:
		return SenderTypeSystem
	}
	panic(fmt.Sprintf("enums: actor role %q has no sender type", string(a)))
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
