// Package docbridge serves document collections as typed relational tables
// over Apache Arrow Flight, in the protocol of the DuckDB Airport extension.
//
// Each table declares its columns with type text such as "Nullable(Int64)" and points at one
// collection. Scans push the engine's filter, ORDER BY and LIMIT down to the
// store where that is safe, and convert every returned document to a row of
// the declared types. Values that do not fit their column fail the scan.
//
// # Quick Start
//
//	clients, _ := mongotable.NewClientCache(0, nil)
//	defer clients.Close()
//
//	cols := schema.Columns{
//	    {Name: "_id", Type: schema.Scalar(schema.KindString)},
//	    {Name: "total", Type: schema.Scalar(schema.KindFloat64), Nullable: true},
//	}
//	cat, err := docbridge.NewCatalogBuilder().
//	    Mongo(docbridge.MongoConfig{Clients: clients}).
//	    Schema("shop").
//	        MongoTable(mongotable.TableDef{
//	            Name:    "orders",
//	            Source:  connection.Source{URI: "mongodb://localhost:27017/shop", Collection: "orders"},
//	            Columns: cols,
//	        }).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	config := docbridge.ServerConfig{Catalog: cat, Auth: docbridge.StaticTokens(tokens)}
//	grpcServer := grpc.NewServer(docbridge.ServerOptions(config)...)
//	if err := docbridge.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
//
// From DuckDB:
//
//	INSTALL airport FROM community;
//	LOAD airport;
//	ATTACH 'docbridge' (TYPE AIRPORT, LOCATION 'grpc://localhost:50051');
//	SELECT * FROM docbridge.shop.orders WHERE total > 100 ORDER BY total DESC LIMIT 10;
//
// The docbridge command builds the same server from a configuration file.
package docbridge
