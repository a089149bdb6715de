// Package http implements the HTTP handlers of the retailcast service.
// Handlers stay thin: they decode and validate the request, call a service
// and render the result. Every failure is converted to an RFC 7807 problem
// by the shared errors.ErrorHandler.
//
// # Routes
//
//	POST /api/v1/basket/analyze            association rules from JSON transactions
//	POST /api/v1/basket/analyze/upload     association rules from a CSV/XLSX upload
//	POST /api/v1/basket/recommendations    items to suggest for a cart
//	POST /api/v1/forecast                  ensemble forecast of a numeric series
//	POST /api/v1/sales/series              daily revenue, quantity and transaction counts
//	POST /api/v1/sales/trends              sales trend summary
//	POST /api/v1/sales/forecast            forecast of one daily sales metric
//	POST /api/v1/sales/{trends,forecast}/upload
//	                                       the same, from a CSV/XLSX upload
//	POST /api/v1/sales/summary/upload      row, product, category and revenue summary of an upload
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//	GET  /metrics                          Prometheus exposition
//
// Uploads are multipart/form-data with the line-item file in the "file"
// field; remaining form fields carry the optional request parameters.
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the service
// interfaces declared in service_interfaces.go.
package http
