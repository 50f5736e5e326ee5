package enums

// ActorRole identifies which viewer issued a request.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleStaff    ActorRole = "staff"
	ActorRoleAdmin    ActorRole = "admin"
	ActorRoleSystem   ActorRole = "system"
)

var actorRoles = newSet("actor role", ActorRoleCustomer, ActorRoleStaff, ActorRoleAdmin, ActorRoleSystem)

func (a ActorRole) String() string { return string(a) }

func (a ActorRole) IsValid() bool { return actorRoles.has(a) }

// IsOperator reports whether the role may mutate orders it does not own.
func (a ActorRole) IsOperator() bool {
	return a == ActorRoleStaff || a == ActorRoleAdmin
}

func ParseActorRole(value string) (ActorRole, error) { return actorRoles.parse(value) }
