package db

import "github.com/corkboard-io/corkboard/internal/util"

// QueryStatement creates a default query and count statement from APIParams. Filters
// and ordering fields are translated through apiToDBFieldMap; defaultOrder applies when
// the caller requested no ordering.
func QueryStatement(db DB, tableName string, params *util.APIParams, apiToDBFieldMap map[string]string, defaultOrder string) (DB, DB) {
	if params == nil {
		params = util.DefaultAPIParams()
	}
	filters := make(map[string]interface{}, len(params.AndFilters))
	for k, v := range params.AndFilters {
		if fieldName, ok := apiToDBFieldMap[k]; ok {
			k = fieldName
		}
		filters[k] = v
	}
	db = db.New().Table(tableName)
	if !params.CreatedBefore.IsZero() {
		db = db.Where(tableName+".created_at < ?", params.CreatedBefore)
	}
	if !params.CreatedAfter.IsZero() {
		db = db.Where(tableName+".created_at > ?", params.CreatedAfter)
	}
	if len(filters) > 0 {
		db = db.Where(filters)
	}
	countDB := db

	db = db.Limit(params.Limit).Offset(params.GetOffsetSQL())
	orderStatement := params.GetOrderBySQLStatement(apiToDBFieldMap)
	if orderStatement == "" {
		orderStatement = defaultOrder
	}
	if orderStatement != "" {
		db = db.Order(orderStatement)
	}
	return db, countDB
}
