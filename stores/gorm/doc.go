//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based implementation of the phoneauth store
// contracts. It supports any database that GORM supports (PostgreSQL, MySQL,
// SQLite, etc.) and is the recommended backend for production deployments:
// uniqueness is enforced by real unique indexes and registration runs in a
// single transaction.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: accounts with a unique username and one password hash
//   - phone_numbers: phone contact records, value unique
//   - email_addresses: email contact records, normalized value unique
//
// There is no token table; verification and reset tokens are derived values.
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	store := gormstore.NewStore(db)
//	gormstore.AutoMigrate(db)
//	auth, _ := phoneauth.New(cfg, store)
//
// Open the database with TranslateError enabled so duplicate-key violations
// map onto gorm.ErrDuplicatedKey and from there onto
// phoneauth.ErrDuplicateValue.
package gorm
