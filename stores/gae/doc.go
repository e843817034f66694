//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of the
// phoneauth store contracts. It is designed for deployment on Google Cloud
// Platform and supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
// The package uses the following Datastore kinds:
//   - User: user accounts with profile data
//   - Username: username reservations, key is the lowercased username
//   - PhoneNumber: phone contact records, key is the normalized number
//   - EmailAddress: email contact records, key is the lowercased address
//   - ContactRef: numeric-id index pointing back at a contact record
//
// Contact values are entity key names, so uniqueness is enforced by
// insert-only transactional writes rather than by queries. There is no token
// kind; verification and reset tokens are derived values.
//
// # Namespacing
//
// Pass a namespace when creating the store to isolate data between tenants:
//
//	store := gae.NewStore(client, "tenant-123")
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewStore(client, "") // default namespace
//	auth, _ := phoneauth.New(cfg, store)
package gae
