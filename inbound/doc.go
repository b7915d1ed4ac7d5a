// Package inbound handles provider-originated push notifications.
//
// The provider delivers transaction events to the registered webhook
// URL; the dispatcher validates the envelope, decodes the payload, and
// hands it to the ingestion path shared with polling.
package inbound
