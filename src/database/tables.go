package database

import "autonomity/src/datamodels"

var DbTables = []interface{}{
	&datamodels.Metric{},
	&datamodels.TradeLogEntry{},
	&datamodels.RegulationLogEntry{},
}
