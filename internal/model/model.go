// Package model contains domain data structures shared by the exchange client,
// the strategy, persistence and the HTTP layer. No business logic lives here.
package model
