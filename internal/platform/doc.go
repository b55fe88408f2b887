// Package platform is the REST client for the contest platform API. Admin
// operations (contest lifecycle, entities, reports) share one authenticated
// client with bounded retries; submissions authenticate as the submitting
// team. Adapters bind the client to the simulation core's Authority and Sink
// interfaces.
package platform
