package csvio

// SampleCSV is a small fabrication list used to seed empty installations.
const SampleCSV = `NO.,ITEM,ASSEMBLY,DESCRIPTION,MATERIAL,LENGTH,Q'TY,WEIGHT,Area,FP
1001,BEAM,BM-01,Base Support,Steel,1200,5,50.5,12.5,F
1002,COLUMN,BM-02,Vertical Post,Steel,2400,2,30.2,8.4,F
1003,BEAM,BM-03,Cross Bar,Alum,800,10,12.0,5.0,P
1004,PLATE,BM-04,Mounting Plate,Steel,400,20,5.5,2.1,F
1005,TRUSS,BM-05,Top Beam,Steel,3000,1,80.0,20.0,F
1006,BRACE,BM-06,Corner Brace,Steel,500,8,4.2,1.2,P
1007,RAIL,BM-07,Safety Rail,Alum,1500,4,8.0,3.5,P
1008,GRATING,BM-08,Walkway Grid,Steel,1000,6,25.0,15.0,F`
