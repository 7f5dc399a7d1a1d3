// Package fixprice knows the wire surface of the fix-price.com buyer API:
// request construction for listing and city-selector endpoints, and the
// extraction of raw records from their JSON payloads.
package fixprice
