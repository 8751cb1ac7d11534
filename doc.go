// Package adminkit is the reusable core of a back-office admin UI: the parts
// every entity screen (employees, skills, job levels, ...) shares.
//
// # Core Concepts
//
// Scope: the role a signed-in user acts as, e.g. "hr_manager" or "employee".
//
// Action: one of view, edit, add, delete, upload and detail. A PermissionTable
// maps each scope to the actions it may perform per resource. A resource that
// is missing, or listed with no actions, denies everything.
//
// Entity key: the name of one entity screen. Selection state, mutation
// tickets, table preferences and cached queries are all kept per entity key,
// and keys never affect each other.
//
// # Components
//
//   - Resolver / Checker: answer "may this scope do this action here?"
//   - SelectionStore: which record each entity screen targets (idle, create, view, edit, delete)
//   - TableEngine: paging, sort and filter state of a list
//   - QueryCodec: the canonical query string of a list request
//   - Orchestrator: guarded create, update and delete with cache invalidation
//   - Screen: composes all of the above for one EntityDescriptor
//   - BuildMenu / CapabilityRegistry: the navigation entries a scope may open
//   - APIClient: the HTTP resource API
//   - Store / RedisTableConfigStore: durable table preferences and a mutation audit log
//
// # Basic Usage
//
//	// 1. Define the permission table (at application startup)
//	registry := adminkit.NewRegistry()
//
//	registry.DefineScope("hr_manager").
//	    Resource("employee").AllowAll().
//	    Resource("skill").Allow(adminkit.ActionView, adminkit.ActionAdd, adminkit.ActionEdit)
//
//	registry.DefineScope("employee").
//	    Resource("employee").Allow(adminkit.ActionView, adminkit.ActionDetail)
//
//	resolver := adminkit.NewResolver(registry.Build())
//
//	// 2. Shared components
//	selections := adminkit.NewSelectionStore()
//	api := adminkit.NewAPIClient("https://hr.example.com/api", adminkit.WithToken(token))
//
//	// 3. One screen per entity
//	screen, err := adminkit.NewScreen(adminkit.ScreenDeps{
//	    API:        api,
//	    Selections: selections,
//	    Resolver:   resolver,
//	}, employeeDescriptor)
//
//	ctx = adminkit.WithScope(ctx, "hr_manager")
//	page, err := screen.Load(ctx)
//	if screen.Gates(ctx).CanEdit {
//	    _, _ = screen.OpenEdit(ctx, page.Data[0])
//	}
//	res, err := screen.Submit(ctx, payload)
//	if adminkit.IsValidationFailed(err) {
//	    // res.FormErrors holds one message per rejected field; the form stays open
//	}
//
// # Middleware Usage
//
//	mw := adminkit.NewMiddleware(resolver)
//
//	router.Use(mw.InjectRequestContext())
//	router.With(mw.RequireAction("", "employee", adminkit.ActionDelete)).
//	    Delete("/employee/{id}", deleteEmployee)
//
// # Query Strings
//
// A list request encodes as
//
//	filter[department]=ops&page=2&pageSize=25&sort=name,-hiredAt
//
// and decodes back to an equal QueryState, given the same filter schema.
package adminkit
