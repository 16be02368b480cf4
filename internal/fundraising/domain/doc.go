// Package domain defines the fundraising entities and their creation rules.
//
// Campaigns move through an active/success/failed/cancelled lifecycle;
// pledges are immutable records tagged with a reward tier, carrying a
// one-way refunded flag. Aggregate fields on Campaign (RaisedUSD, Backers)
// must always agree with the campaign's non-refunded pledge rows; the
// storage and service layers enforce that invariant.
package domain
