// Package services implements the driving ports on top of the driven
// ports. The composition root builds each service once; search indexes and
// other caches belong to the service that built them.
package services
