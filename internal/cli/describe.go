package cli

import (
	"context"

	"github.com/hugr-lab/docbridge/catalog"
	"github.com/hugr-lab/docbridge/mongotable"
)

func describe(cat catalog.Catalog) ([]TableInfo, error) {
	ctx := context.Background()
	schemas, err := cat.Schemas(ctx)
	if err != nil {
		return nil, err
	}
	var infos []TableInfo
	for _, s := range schemas {
		tables, err := s.Tables(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			info := TableInfo{Schema: s.Name(), Table: t.Name()}
			if mt, ok := t.(*mongotable.Table); ok {
				info.Target = mt.Target().Display().String()
				for _, c := range mt.Columns() {
					info.Columns = append(info.Columns, c.Name+" "+c.DeclaredType())
				}
			} else {
				for _, f := range t.ArrowSchema().Fields() {
					info.Columns = append(info.Columns, f.Name+" "+f.Type.String())
				}
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}
