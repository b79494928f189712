package keeper

import (
	"github.com/openalpha/stakevault/x/vault/types"
)

// ChangeAdmin hands the admin role, and with it the fee destination, to a new
// identity. Only the current admin may call it. The transfer is immediate,
// with no acceptance step.
func (k *Keeper) ChangeAdmin(caller, newAdmin string) error {
	if err := k.guard.enter(); err != nil {
		return err
	}
	defer k.guard.exit()

	if newAdmin == "" {
		return types.ErrInvalidIdentity.Wrap("new admin cannot be empty")
	}

	admin, err := k.GetAdmin()
	if err != nil {
		return err
	}
	if caller != admin {
		return types.ErrUnauthorized.Wrapf("caller %s is not admin", caller)
	}

	if err := k.setAdmin(newAdmin); err != nil {
		return err
	}

	k.logger.Info("admin changed", "previous", admin, "new", newAdmin)
	k.emit(types.EventTypeAdminChanged, map[string]string{
		"previous_admin": admin,
		"new_admin":      newAdmin,
	})

	return nil
}
