package phoneauth

import "errors"

// Resolver maps an ambiguous login string to at most one user account by
// trying the configured identifier namespaces in order.
type Resolver struct {
	Users    UserStore
	Contacts ContactStore
	Config   *Config
}

// ResolveMethod returns the namespace a login string would be looked up in:
// the first configured method whose validator accepts the string. The second
// return is false when no configured method matches.
//
// This is deliberately first-match-wins. An inclusive OR across all matching
// namespaces would let a login string that happens to validate as two kinds
// (an all-digit username, say) match an unintended account.
func (r *Resolver) ResolveMethod(login string) (Method, bool) {
	for _, m := range r.Config.AuthenticationMethods {
		switch m {
		case MethodPhone:
			if IsValidPhone(login) {
				return MethodPhone, true
			}
		case MethodEmail:
			if IsValidEmail(login) {
				return MethodEmail, true
			}
		case MethodUsername:
			if IsValidUsername(login) {
				return MethodUsername, true
			}
		}
	}
	return "", false
}

// Resolve finds the single account a login string refers to. It performs
// exactly one store lookup, in the namespace chosen by ResolveMethod; later
// methods are not tried even when that lookup comes up empty. Returns
// (nil, nil) when no method matches or the lookup finds nothing.
func (r *Resolver) Resolve(login string) (User, error) {
	if len(r.Config.AuthenticationMethods) == 0 {
		return nil, ErrNoAuthMethods
	}

	method, ok := r.ResolveMethod(login)
	if !ok {
		return nil, nil
	}

	switch method {
	case MethodPhone:
		return r.userByContact(KindPhone, NormalizePhone(login))
	case MethodEmail:
		return r.userByContact(KindEmail, NormalizeEmail(login))
	default:
		user, err := r.Users.GetUserByUsername(login)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return user, err
	}
}

func (r *Resolver) userByContact(kind ContactKind, value string) (User, error) {
	rec, err := r.Contacts.GetByValue(kind, value)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user, err := r.Users.GetUserById(rec.UserID)
	if errors.Is(err, ErrRecordNotFound) {
		// Orphaned record; treat as no match rather than an internal error.
		return nil, nil
	}
	return user, err
}
