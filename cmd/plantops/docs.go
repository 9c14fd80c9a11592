package main

// @title PlantOps API
// @version 1.0
// @description Inventory and procurement API for plant maintenance: parts, stock ledger, quote requests, purchase orders and goods receipts.

// @contact.name API Support
// @contact.url http://github.com/tair/plantops
// @contact.email support@example.com

// @license.name MIT
// @license.url https://github.com/tair/plantops/blob/main/LICENSE

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Departments
// @tag.description Department tree endpoints

// @tag.name Parts
// @tag.description Part catalog and stock ledger endpoints

// @tag.name Quotes
// @tag.description Quote request workflow endpoints

// @tag.name Orders
// @tag.description Purchase order workflow and goods receipt endpoints

// @tag.name Attachments
// @tag.description File attachments of quote requests and purchase orders
