package command

import "regexp"

// Service levels accepted by the storage management API.
var serviceLevels = []string{"Ultra", "Premium", "Standard", "StandardZRS"}

var (
	resourceNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-_]{0,63}$`)
	locationPattern     = regexp.MustCompile(`^[a-z][a-z0-9]+$`)
	sizePattern         = regexp.MustCompile(`^[0-9]+$`)
	mountPathPattern    = regexp.MustCompile(`^/[A-Za-z0-9\-_/]*$`)
)

// Catalog returns the static command catalog for the NetApp Files
// management surface: accounts, capacity pools, volumes, and snapshots.
func Catalog() []Definition {
	return []Definition{
		{
			Name:        "help",
			Description: "list available commands",
			Permission:  "system.read",
			Local:       true,
		},
		{
			Name:        "list-accounts",
			Description: "list NetApp accounts in the subscription",
			Permission:  "account.read",
			Operation:   "anf.accounts.list",
		},
		{
			Name:        "create-account",
			Description: "create a NetApp account",
			Permission:  "account.write",
			Operation:   "anf.accounts.create",
			Params: []ParamSpec{
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "What should the account be called?"},
				{Name: "location", Type: ParamString, Required: true, Pattern: locationPattern, Prompt: "Which region should it be created in (e.g. eastus)?"},
			},
		},
		{
			Name:        "delete-account",
			Description: "delete a NetApp account",
			Permission:  "account.delete",
			Operation:   "anf.accounts.delete",
			Params: []ParamSpec{
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account should be deleted?"},
			},
		},
		{
			Name:        "list-pools",
			Description: "list capacity pools under an account",
			Permission:  "pool.read",
			Operation:   "anf.pools.list",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account's pools should be listed?"},
			},
		},
		{
			Name:        "create-pool",
			Description: "create a capacity pool",
			Permission:  "pool.write",
			Operation:   "anf.pools.create",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account should the pool belong to?"},
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "What should the pool be called?"},
				{Name: "location", Type: ParamString, Required: true, Pattern: locationPattern, Prompt: "Which region should it be created in?"},
				{Name: "size-tb", Type: ParamInteger, Required: true, Pattern: sizePattern, Prompt: "How large should the pool be, in TiB?"},
				{Name: "service-level", Type: ParamEnum, Required: true, Values: serviceLevels, Prompt: "Which service level (Ultra, Premium, Standard, StandardZRS)?"},
			},
		},
		{
			Name:        "resize-pool",
			Description: "resize a capacity pool",
			Permission:  "pool.write",
			Operation:   "anf.pools.update",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account is the pool under?"},
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which pool should be resized?"},
				{Name: "size-tb", Type: ParamInteger, Required: true, Pattern: sizePattern, Prompt: "What should the new size be, in TiB?"},
			},
		},
		{
			Name:        "delete-pool",
			Description: "delete a capacity pool",
			Permission:  "pool.delete",
			Operation:   "anf.pools.delete",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account is the pool under?"},
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which pool should be deleted?"},
			},
		},
		{
			Name:        "list-volumes",
			Description: "list volumes in a capacity pool",
			Permission:  "volume.read",
			Operation:   "anf.volumes.list",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account?"},
				{Name: "pool", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which capacity pool?"},
			},
		},
		{
			Name:        "create-volume",
			Description: "create a volume",
			Permission:  "volume.write",
			Operation:   "anf.volumes.create",
			Params: []ParamSpec{
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "What should the volume be called?"},
				{Name: "size", Type: ParamInteger, Required: true, Pattern: sizePattern, Prompt: "How large should the volume be, in GiB?"},
				{Name: "service-level", Type: ParamEnum, Required: true, Values: serviceLevels, Prompt: "Which service level (Ultra, Premium, Standard, StandardZRS)?"},
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account should it belong to?"},
				{Name: "pool", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which capacity pool should it belong to?"},
				{Name: "mount-path", Type: ParamPath, Required: false, Pattern: mountPathPattern, Prompt: "What mount path should be exported?"},
			},
		},
		{
			Name:        "resize-volume",
			Description: "resize a volume",
			Permission:  "volume.write",
			Operation:   "anf.volumes.update",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account?"},
				{Name: "pool", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which capacity pool?"},
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which volume should be resized?"},
				{Name: "size", Type: ParamInteger, Required: true, Pattern: sizePattern, Prompt: "What should the new size be, in GiB?"},
			},
		},
		{
			Name:        "delete-volume",
			Description: "delete a volume",
			Permission:  "volume.delete",
			Operation:   "anf.volumes.delete",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account?"},
				{Name: "pool", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which capacity pool?"},
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which volume should be deleted?"},
			},
		},
		{
			Name:        "create-snapshot",
			Description: "snapshot a volume",
			Permission:  "snapshot.write",
			Operation:   "anf.snapshots.create",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account?"},
				{Name: "pool", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which capacity pool?"},
				{Name: "volume", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which volume should be snapshotted?"},
				{Name: "name", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "What should the snapshot be called?"},
			},
		},
		{
			Name:        "list-snapshots",
			Description: "list snapshots of a volume",
			Permission:  "snapshot.read",
			Operation:   "anf.snapshots.list",
			Params: []ParamSpec{
				{Name: "account", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which account?"},
				{Name: "pool", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which capacity pool?"},
				{Name: "volume", Type: ParamString, Required: true, Pattern: resourceNamePattern, Prompt: "Which volume's snapshots should be listed?"},
			},
		},
	}
}
